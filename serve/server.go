// Package serve implements the bridge's TCP transport server. It accepts one
// client connection at a time, reads newline-delimited JSON requests, funnels
// them through the main-thread dispatcher, and writes the framed responses.
// The server never touches host state directly: all host interaction happens
// via the queue.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/dispatch"
)

// Options tunes server behavior.
type Options struct {
	// EvictStale closes the active connection when a new client connects.
	// When false the new connection is rejected with a ProtocolError frame.
	EvictStale bool
	// MaxFrameBytes caps a single request line. Oversized frames end the
	// connection. Zero means 32 MiB.
	MaxFrameBytes int
	// KnownMethod reports whether the executor can handle a method name.
	// Unknown names are answered UnknownMethod here at the transport; they
	// never reach the dispatcher. Nil accepts every name.
	KnownMethod func(string) bool
}

// Server listens on a TCP endpoint for bridge requests.
type Server struct {
	listener net.Listener
	queue    *dispatch.Queue
	opts     Options

	mu     sync.Mutex
	active net.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a server bound to addr. Pass port 0 to let the OS pick one
// (useful in tests); Addr reports the bound endpoint.
func New(addr string, queue *dispatch.Queue, opts Options) (*Server, error) {
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = 32 << 20
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener: listener,
		queue:    queue,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Addr returns the bound endpoint.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until Close. Returns nil on clean shutdown.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server and the active connection. Queued commands are
// not resolved here; that is the dispatcher owner's job.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.listener.Close()
		s.mu.Lock()
		if s.active != nil {
			s.active.Close()
		}
		s.mu.Unlock()
	})
}

// claim takes the exclusive connection slot, evicting the current holder when
// policy allows. Returns false when the slot is busy and eviction is off.
func (s *Server) claim(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		if !s.opts.EvictStale {
			return false
		}
		slog.Info("evicting stale connection", "remote", s.active.RemoteAddr())
		s.active.Close()
	}
	s.active = conn
	return true
}

func (s *Server) release(conn net.Conn) {
	s.mu.Lock()
	if s.active == conn {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if !s.claim(conn) {
		writeResponse(conn, cadbridge.Response{
			Error: cadbridge.Errorf(cadbridge.KindProtocolError, "another client is connected"),
		})
		return
	}
	defer s.release(conn)

	slog.Info("client connected", "remote", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), s.opts.MaxFrameBytes)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var req cadbridge.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("malformed request", "error", err)
			if !writeResponse(conn, cadbridge.Response{
				Error: cadbridge.Errorf(cadbridge.KindProtocolError, "malformed request: %v", err),
			}) {
				return
			}
			continue
		}
		if req.Method == "" {
			if !writeResponse(conn, cadbridge.Response{
				ID:    req.ID,
				Error: cadbridge.Errorf(cadbridge.KindProtocolError, "method is required"),
			}) {
				return
			}
			continue
		}
		if s.opts.KnownMethod != nil && !s.opts.KnownMethod(req.Method) {
			if !writeResponse(conn, cadbridge.Response{
				ID:    req.ID,
				Error: cadbridge.Errorf(cadbridge.KindUnknownMethod, "unknown method %q", req.Method),
			}) {
				return
			}
			continue
		}

		slog.Debug("request", "id", req.ID, "method", req.Method)

		kind := cadbridge.Structured
		if req.Method == "execute_code" {
			kind = cadbridge.Code
		}
		pending, err := s.queue.Enqueue(cadbridge.Command{
			ID:       req.ID,
			Kind:     kind,
			Method:   req.Method,
			Params:   req.Params,
			IssuedAt: time.Now(),
		})
		if err != nil {
			var bridgeErr *cadbridge.Error
			if !errors.As(err, &bridgeErr) {
				bridgeErr = cadbridge.Errorf(cadbridge.KindBridgeClosed, "%v", err)
			}
			writeResponse(conn, cadbridge.Response{ID: req.ID, Error: bridgeErr})
			return
		}

		res, waitErr := pending.Wait(s.ctx)
		if waitErr != nil {
			// Server shutting down mid-wait; the entry resolves through
			// the queue's own shutdown path.
			writeResponse(conn, cadbridge.Response{
				ID:    req.ID,
				Error: cadbridge.Errorf(cadbridge.KindShutdownError, "bridge shutting down"),
			})
			return
		}

		slog.Debug("response", "id", req.ID, "ok", res.OK())

		// A failed write means the client dropped mid-flight. The result
		// is discarded and the connection slot freed for the next client.
		if !writeResponse(conn, cadbridge.ResponseFor(req.ID, res)) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			writeResponse(conn, cadbridge.Response{
				Error: cadbridge.Errorf(cadbridge.KindProtocolError, "frame exceeds %d bytes", s.opts.MaxFrameBytes),
			})
			// Drain the rest of the oversized frame so closing with
			// unread data cannot reset the connection before the
			// error frame reaches the client.
			conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
			io.Copy(io.Discard, conn)
			return
		}
		slog.Debug("connection closed", "error", err)
	}
}

func writeResponse(conn net.Conn, resp cadbridge.Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return false
	}
	_, err = conn.Write(append(data, '\n'))
	return err == nil
}
