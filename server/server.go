// Package server implements the lifecycle, accept loop, and shutdown
// signaling of the reference RPC server runtime (spec §4.6).
//
// State machine: Idle -> Running -> Stopping -> Stopped. Run transitions
// Idle to Running and may be called at most once per Server. Stop signals
// the accept goroutine to exit and blocks until it does, mirroring the
// teacher's and the original Rust Server's Drop-time join.
package server

import (
	"fmt"
	"log"
	"sync"
	"time"

	"tinyrpc/address"
	"tinyrpc/transport"
)

// idleTick is the accept loop's poll interval once Next reports would-block
// (spec §6: default 100ms).
const idleTick = 100 * time.Millisecond

// Server runs the accept loop for one ServerTransport, dispatching every
// accepted connection to its shared Processor.
type Server[Req, Rep any] struct {
	mu        sync.Mutex
	started   bool
	addr      address.Address
	transport transport.ServerTransport[Req, Rep]
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates an idle server.
func New[Req, Rep any]() *Server[Req, Rep] {
	return &Server[Req, Rep]{}
}

// Run binds t and starts the accept loop on its own goroutine. It may be
// called at most once; a second call returns an error.
func (s *Server[Req, Rep]) Run(processor transport.Processor[Req, Rep], t transport.ServerTransport[Req, Rep]) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server: Run called more than once")
	}
	s.started = true
	s.mu.Unlock()

	if err := t.Connect(); err != nil {
		return err
	}

	s.transport = t
	s.addr = t.Addr()
	s.stopCh = make(chan struct{}, 1)
	s.stoppedCh = make(chan struct{})

	log.Printf("%s has started. Listening for incoming requests...", s)

	go s.acceptLoop(processor)
	return nil
}

// acceptLoop implements spec §4.6's accept loop exactly: call Next; on
// would-block, check for a pending shutdown signal and otherwise Wait and
// retry; on any other error, log and exit.
func (s *Server[Req, Rep]) acceptLoop(processor transport.Processor[Req, Rep]) {
	defer close(s.stoppedCh)

	for {
		err := s.transport.Next(processor)
		if err == nil {
			continue
		}

		if !transport.IsWouldBlock(err) {
			log.Printf("%s: accept error: %v", s, err)
			return
		}

		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := s.transport.Wait(idleTick); err != nil {
			log.Printf("%s: wait error: %v", s, err)
			return
		}
	}
}

// Stop signals the accept goroutine to exit and blocks until it has. It is
// a no-op if Run was never called.
func (s *Server[Req, Rep]) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}

	select {
	case s.stopCh <- struct{}{}:
	default:
	}

	<-s.stoppedCh

	if err := s.transport.Close(); err != nil {
		log.Printf("%s: close error: %v", s, err)
	}

	log.Printf("%s has been closed.", s)
}

// Addr returns the address the server is bound to, the zero Address before
// Run has been called.
func (s *Server[Req, Rep]) Addr() address.Address {
	return s.addr
}

func (s *Server[Req, Rep]) String() string {
	return fmt.Sprintf("Server[%s]", s.addr)
}
