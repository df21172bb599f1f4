package rpc

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"net"
	"sync"
	"time"

	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/id"
	"github.com/convomarkapp/convomark-host/internal/logger"
)

// Client is the caller side of the protocol. Calls from any goroutine are
// multiplexed over one connection and correlated by request ID.
//
// Once the transport drops, the client is permanently invalidated: every
// in-flight and subsequent call fails with CONTEXT_INVALIDATED. Callers are
// expected to discard the client and dial a fresh one.
type Client struct {
	conn   io.ReadWriteCloser
	writer *frameWriter
	logger *logger.Logger

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

// ClientOptions configures a client.
type ClientOptions struct {
	Logger *logger.Logger
	// LivenessInterval is how often the client pings the daemon to detect
	// a silently dead transport. 0 disables pinging.
	LivenessInterval time.Duration
}

// NewClient starts a client over an established transport.
func NewClient(conn io.ReadWriteCloser, opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Config{})
	}

	c := &Client{
		conn:    conn,
		writer:  newFrameWriter(conn),
		logger:  log,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}

	go c.readLoop()
	if opts.LivenessInterval > 0 {
		go c.livenessLoop(opts.LivenessInterval)
	}

	return c
}

// DialSocket connects to the daemon's unix socket.
func DialSocket(path string, opts ClientOptions) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeContextInvalidated, "dial daemon socket")
	}
	return NewClient(conn, opts), nil
}

// Call sends one request and blocks for its response. The returned value
// is the raw response data; nil means the daemon answered ok with null.
func (c *Client) Call(ctx context.Context, action string, payload any) (jsontext.Value, error) {
	var encoded jsontext.Value
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode request payload")
		}
		encoded = jsontext.Value(raw)
	}

	req := Request{
		ID:      id.MustGenerate("req"),
		Action:  action,
		Payload: encoded,
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, apperrors.ErrContextInvalidated
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.writer.Write(req); err != nil {
		c.invalidate(err)
		return nil, apperrors.ErrContextInvalidated
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, apperrors.ErrContextInvalidated
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error.Err()
		}
		return resp.Data, nil
	}
}

// CallInto is Call plus decoding into dest. A null response leaves dest
// untouched and reports found=false.
func (c *Client) CallInto(ctx context.Context, action string, payload, dest any) (bool, error) {
	data, err := c.Call(ctx, action, payload)
	if err != nil {
		return false, err
	}
	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeInternal, "decode response data")
	}
	return true, nil
}

// Ping round-trips a liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, ActionPing, nil)
	return err
}

// Invalidated reports whether the transport has dropped.
func (c *Client) Invalidated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close tears down the transport. Subsequent calls fail with
// CONTEXT_INVALIDATED.
func (c *Client) Close() error {
	c.invalidate(nil)
	return nil
}

// readLoop routes responses to their waiting calls until the transport
// fails or the client closes.
func (c *Client) readLoop() {
	reader := newFrameReader(c.conn)
	for {
		var resp Response
		if err := reader.Read(&resp); err != nil {
			c.invalidate(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("response for unknown request", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

// livenessLoop proactively detects a dead daemon so callers fail fast
// instead of waiting on their next write.
func (c *Client) livenessLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := c.Ping(ctx)
			cancel()
			if err != nil && c.Invalidated() {
				return
			}
		}
	}
}

// invalidate marks the client dead and wakes every in-flight call.
func (c *Client) invalidate(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if err != nil && err != io.EOF {
			c.logger.Debug("transport invalidated", "error", err)
		}
		close(c.done)
		_ = c.conn.Close()
	})
}
