// Package rpcerr defines the client-facing outcome of an RPC call.
package rpcerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"tinyrpc/message"
)

// Kind names the closed set of client-facing error shapes (spec §4.2/§7).
type Kind int

const (
	Io Kind = iota
	Codec
	Server
	InvalidResponseType
	NoSocketAddress
	NotRunning
)

// Error is the RpcError of spec.md: Io(·), Codec(·), Server(ServerError),
// InvalidResponseType, NoSocketAddress, NotRunning.
type Error struct {
	Kind   Kind
	Cause  error
	Server message.ServerError
}

func FromIO(err error) *Error {
	return &Error{Kind: Io, Cause: err}
}

func FromCodec(err error) *Error {
	return &Error{Kind: Codec, Cause: err}
}

func FromServer(err message.ServerError) *Error {
	return &Error{Kind: Server, Server: err}
}

func NewInvalidResponseType() *Error {
	return &Error{Kind: InvalidResponseType}
}

func NewNoSocketAddress() *Error {
	return &Error{Kind: NoSocketAddress}
}

func NewNotRunning() *Error {
	return &Error{Kind: NotRunning}
}

func (e *Error) Error() string {
	switch e.Kind {
	case Io:
		return fmt.Sprintf("rpc: io error: %v", e.Cause)
	case Codec:
		return fmt.Sprintf("rpc: codec error: %v", e.Cause)
	case Server:
		return fmt.Sprintf("rpc: server error: %v", e.Server)
	case InvalidResponseType:
		return "rpc: invalid response type"
	case NoSocketAddress:
		return "rpc: address is not a socket address"
	case NotRunning:
		return "rpc: server is not running"
	default:
		return "rpc: unknown error"
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WouldBlock reports whether the cause is an I/O error whose kind is
// "operation would block" — the would-block sentinel of spec §4.4.
func (e *Error) WouldBlock() bool {
	if e.Kind != Io || e.Cause == nil {
		return false
	}
	var nerr net.Error
	if errors.As(e.Cause, &nerr) {
		return nerr.Timeout()
	}
	return false
}

// FromIOOrCodec converts a raw error encountered while decoding a wire
// response into the right Error variant: a json.SyntaxError or
// *json.UnmarshalTypeError is a Codec error, everything else is Io.
func FromIOOrCodec(err error) *Error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return FromCodec(err)
	}
	return FromIO(err)
}
