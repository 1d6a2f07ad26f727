package transport

import (
	"errors"
	"net"
)

// ErrWouldBlock is the distinguished sentinel a ServerTransport.Next
// implementation returns when no connection is currently ready to accept.
var ErrWouldBlock = errors.New("transport: operation would block")

// IsWouldBlock reports whether err is the would-block sentinel, including
// when it arrives wrapped as a timeout from a non-blocking net.Listener.
func IsWouldBlock(err error) bool {
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}
