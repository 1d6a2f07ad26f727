// Package tcp is the reference transport: a fresh TCP connection per RPC,
// carrying a single JSON document. The client signals end-of-request by
// half-closing its write side; the server signals end-of-response by
// closing the connection. There is no length prefix — see spec §4.5 and
// DESIGN.md for why that is a deliberate, not an accidental, omission.
package tcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"tinyrpc/address"
	"tinyrpc/message"
	"tinyrpc/rpcerr"
	"tinyrpc/transport"
	"tinyrpc/workerpool"
)

// Config carries the closed set of configurable options from spec §6.
type Config struct {
	WorkerPoolSize int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the spec-mandated defaults: 4 workers, 5s
// read/write timeouts.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize: 4,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// ServerTransport is the TCP+JSON implementation of transport.ServerTransport.
type ServerTransport[Req, Rep any] struct {
	addr address.Address
	cfg  Config
	ln   *net.TCPListener
	pool *workerpool.Pool
}

// NewServerTransport builds a server transport bound to addr once Connect
// is called. addr must resolve to a Socket address.
func NewServerTransport[Req, Rep any](addr address.Address, cfg Config) *ServerTransport[Req, Rep] {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultConfig().WorkerPoolSize
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &ServerTransport[Req, Rep]{addr: addr, cfg: cfg}
}

func (t *ServerTransport[Req, Rep]) Addr() address.Address {
	return t.addr
}

// Connect binds the listener. The listener is used in non-blocking mode by
// giving every Accept call an immediate deadline in Next.
func (t *ServerTransport[Req, Rep]) Connect() error {
	sockAddr, ok := t.addr.Socket()
	if !ok {
		return rpcerr.NewNoSocketAddress()
	}

	ln, err := net.ListenTCP("tcp", sockAddr)
	if err != nil {
		return err
	}

	t.ln = ln
	t.pool = workerpool.New(t.cfg.WorkerPoolSize)
	// Re-resolve addr to the OS-assigned port when the caller bound to
	// port 0, so Addr() reflects where the server actually listens.
	t.addr = address.FromTCPAddr(ln.Addr().(*net.TCPAddr))
	return nil
}

// Next performs a single non-blocking accept. A connection ready to accept
// is dispatched to the worker pool; otherwise transport.ErrWouldBlock is
// returned.
func (t *ServerTransport[Req, Rep]) Next(processor transport.Processor[Req, Rep]) error {
	if err := t.ln.SetDeadline(time.Now()); err != nil {
		return err
	}

	conn, err := t.ln.Accept()
	if err != nil {
		if transport.IsWouldBlock(err) {
			return transport.ErrWouldBlock
		}
		return err
	}

	return t.pool.Execute(func() error {
		return t.handleConn(conn, processor)
	})
}

// Wait blocks on read-readiness of the listener's file descriptor, or
// until timeout elapses, without accepting a connection itself.
func (t *ServerTransport[Req, Rep]) Wait(timeout time.Duration) error {
	rc, err := t.ln.SyscallConn()
	if err != nil {
		return err
	}

	var pollErr error
	ctrlErr := rc.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, pollErr = unix.Poll(pfd, int(timeout.Milliseconds()))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	if errors.Is(pollErr, unix.EINTR) {
		return nil
	}
	return pollErr
}

// Close stops the listener and closes the worker pool, blocking until
// every in-flight worker has drained its last job. Per spec §3's
// connection-state invariant, dropping the pool closes the queue and
// joins all workers; this is where that happens for the TCP transport.
func (t *ServerTransport[Req, Rep]) Close() error {
	err := t.ln.Close()
	t.pool.Close()
	return err
}

// handleConn runs on a worker: decode the request, invoke the processor,
// encode and write the response. Any I/O error is logged; no reply is
// attempted after a write failure.
func (t *ServerTransport[Req, Rep]) handleConn(conn net.Conn, processor transport.Processor[Req, Rep]) error {
	defer conn.Close()

	now := time.Now()
	if err := conn.SetReadDeadline(now.Add(t.cfg.ReadTimeout)); err != nil {
		log.Printf("tcp: set read deadline: %v", err)
		return err
	}
	if err := conn.SetWriteDeadline(now.Add(t.cfg.WriteTimeout)); err != nil {
		log.Printf("tcp: set write deadline: %v", err)
		return err
	}

	body, err := io.ReadAll(conn)
	if err != nil {
		log.Printf("tcp: read request: %v", err)
		return err
	}

	var resp message.Response[Rep]
	var req message.Request[Req]
	if err := json.Unmarshal(body, &req); err != nil {
		resp = message.ErrorResponse[Rep](message.NewDecodingError(err.Error()))
	} else {
		resp = processor(req)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		log.Printf("tcp: encode response: %v", err)
		return err
	}

	if _, err := conn.Write(out); err != nil {
		log.Printf("tcp: write response: %v", err)
		return err
	}

	return nil
}

// ClientTransport is the TCP+JSON implementation of transport.ClientTransport.
type ClientTransport[Req, Rep any] struct {
	addr address.Address
}

// NewClientTransport builds a client transport that dials addr fresh for
// every call. addr must resolve to a Socket address.
func NewClientTransport[Req, Rep any](addr address.Address) *ClientTransport[Req, Rep] {
	return &ClientTransport[Req, Rep]{addr: addr}
}

// Connect returns a callable performing one fresh-connection round-trip
// per invocation.
func (t *ClientTransport[Req, Rep]) Connect() transport.Conn[Req, Rep] {
	return func(req message.Request[Req]) (message.Response[Rep], error) {
		var zero message.Response[Rep]

		sockAddr, ok := t.addr.Socket()
		if !ok {
			return zero, rpcerr.NewNoSocketAddress()
		}

		conn, err := net.DialTCP("tcp", nil, sockAddr)
		if err != nil {
			return zero, rpcerr.FromIO(err)
		}
		defer conn.Close()

		payload, err := json.Marshal(req)
		if err != nil {
			return zero, rpcerr.FromCodec(err)
		}

		if _, err := conn.Write(payload); err != nil {
			return zero, rpcerr.FromIO(err)
		}
		// Signal end-of-request: half-close the write side.
		if err := conn.CloseWrite(); err != nil {
			return zero, rpcerr.FromIO(err)
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, conn); err != nil {
			return zero, rpcerr.FromIO(err)
		}

		var resp message.Response[Rep]
		if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
			return zero, rpcerr.FromIOOrCodec(err)
		}
		return resp, nil
	}
}
