// Package transport defines the narrow capability sets a service's
// generated dispatcher is plugged into: one for server acceptors, one for
// client connectors, both parameterized over the request and response sum
// types a particular service's code generator produces.
package transport

import (
	"time"

	"tinyrpc/address"
	"tinyrpc/message"
)

// Processor maps a decoded request envelope to a response envelope. It is
// the generated dispatcher's shape; the server shares one Processor across
// every accepted connection, so it must be safe to call concurrently.
type Processor[Req, Rep any] func(message.Request[Req]) message.Response[Rep]

// ServerTransport is the server-side half of the transport abstraction.
type ServerTransport[Req, Rep any] interface {
	// Addr returns the endpoint this transport will bind to.
	Addr() address.Address

	// Connect binds the acceptor. Implementations must leave the
	// acceptor in non-blocking mode.
	Connect() error

	// Next attempts to accept and schedule exactly one connection. It
	// returns a would-block error (see ErrWouldBlock) when none is ready.
	Next(processor Processor[Req, Rep]) error

	// Wait blocks until an I/O readiness event fires or timeout elapses.
	Wait(timeout time.Duration) error

	// Close stops accepting new connections and releases every resource
	// Connect acquired: the listening socket and the worker pool. It
	// blocks until all in-flight workers have drained.
	Close() error
}

// Conn is a single callable round-trip: given a request, it returns a
// response or a transport-level failure.
type Conn[Req, Rep any] func(req message.Request[Req]) (message.Response[Rep], error)

// ClientTransport is the client-side half of the transport abstraction.
type ClientTransport[Req, Rep any] interface {
	// Connect produces a callable that performs one round-trip per call.
	Connect() Conn[Req, Rep]
}
