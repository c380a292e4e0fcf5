// Package client implements the out-of-process side of the bridge: a
// synchronous call interface over the newline-delimited JSON transport, with
// lazy connection, bounded reconnect with backoff, and per-call timeouts.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/modelship/cadbridge"
)

// Client talks to one bridge server. Safe for concurrent use; calls are
// serialized because the transport is strict request/response.
type Client struct {
	addr        string
	timeout     time.Duration
	dialTimeout time.Duration
	maxAttempts int
	backoff     cadbridge.BackoffConfig
	rng         *rand.Rand

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int64
	closed bool
}

// New creates a client for the given endpoint using the config's client
// settings. No connection is made until the first call.
func New(addr string, cfg cadbridge.ClientConfig) *Client {
	return &Client{
		addr:        addr,
		timeout:     time.Duration(cfg.DefaultTimeoutMS) * time.Millisecond,
		dialTimeout: time.Duration(cfg.DialTimeoutMS) * time.Millisecond,
		maxAttempts: cfg.MaxConnectAttempts,
		backoff:     cfg.Backoff,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Close drops the connection. Further calls fail with BridgeClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.dropLocked()
}

// Call sends one command and waits for its result. It connects lazily,
// retrying the connection (never the command) with backoff up to the
// configured attempt bound.
//
// On timeout the call fails with Timeout and the connection is dropped so a
// late response can never be mis-paired with the next call. The server-side
// command may still have executed: delivery is at-most-once from the caller's
// view, with no rollback of host state.
//
// A server-reported error is returned verbatim as *cadbridge.Error and is
// never retried.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, cadbridge.Errorf(cadbridge.KindInvalidArguments, "params not serializable: %v", err)
		}
		raw = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, cadbridge.Errorf(cadbridge.KindBridgeClosed, "client is closed")
	}

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.nextID++
	req := cadbridge.Request{ID: c.nextID, Method: method, Params: raw}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return nil, cadbridge.Errorf(cadbridge.KindConnectionLost, "%v", err)
	}

	frame, err := json.Marshal(req)
	if err != nil {
		return nil, cadbridge.Errorf(cadbridge.KindInvalidArguments, "request not serializable: %v", err)
	}
	if _, err := c.conn.Write(append(frame, '\n')); err != nil {
		c.dropLocked()
		return nil, wireError(err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		c.dropLocked()
		return nil, wireError(err)
	}

	var resp cadbridge.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.dropLocked()
		return nil, cadbridge.Errorf(cadbridge.KindProtocolError, "malformed response: %v", err)
	}
	if resp.ID != req.ID {
		c.dropLocked()
		return nil, cadbridge.Errorf(cadbridge.KindProtocolError, "response id %d for request %d", resp.ID, req.ID)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// connectLocked dials the server if not already connected, with bounded
// retries and exponential backoff between attempts.
func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	attempts := c.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := nextBackoffDelay(c.backoff, attempt-1, c.rng)
			slog.Debug("reconnecting", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return cadbridge.Errorf(cadbridge.KindConnectionLost, "connect cancelled: %v", ctx.Err())
			}
		}

		dialer := net.Dialer{Timeout: c.dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			lastErr = err
			continue
		}
		c.conn = conn
		c.reader = bufio.NewReader(conn)
		return nil
	}
	return cadbridge.Errorf(cadbridge.KindConnectionLost, "cannot connect to %s after %d attempts: %v", c.addr, attempts, lastErr)
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// wireError classifies a transport failure as Timeout or ConnectionLost.
func wireError(err error) *cadbridge.Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return cadbridge.Errorf(cadbridge.KindTimeout, "call timed out: %v", err)
	}
	return cadbridge.Errorf(cadbridge.KindConnectionLost, "connection lost: %v", err)
}

// nextBackoffDelay returns the delay before retry N (1-based): the first
// retry waits the initial delay, each further retry multiplies it. MaxMS is a
// hard ceiling, applied after jitter.
func nextBackoffDelay(cfg cadbridge.BackoffConfig, retry int, rng *rand.Rand) time.Duration {
	initial := time.Duration(cfg.InitialMS) * time.Millisecond
	if initial <= 0 {
		return 0
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(initial)
	for i := 1; i < retry; i++ {
		delay *= mult
	}
	if cfg.Jitter {
		delay *= 0.5 + rng.Float64()
	}
	if max := time.Duration(cfg.MaxMS) * time.Millisecond; max > 0 && delay > float64(max) {
		delay = float64(max)
	}
	return time.Duration(delay)
}
