package rpc

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"net"
	"sync"

	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/id"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/ratelimit"
)

// HandlerFunc processes one request payload and returns the response data.
// Returning (nil, nil) answers ok with null data.
type HandlerFunc func(ctx context.Context, payload jsontext.Value) (any, error)

// Server dispatches framed requests to registered handlers. Each request is
// handled in its own goroutine, so responses may return out of request
// order; callers correlate by request ID.
type Server struct {
	logger   *logger.Logger
	limiter  *ratelimit.KeyedRateLimiter
	handlers map[string]HandlerFunc

	mu    sync.Mutex
	conns map[string]io.Closer
	wg    sync.WaitGroup
}

// ServerOptions configures the server.
type ServerOptions struct {
	Logger *logger.Logger
	// RequestsPerSecond caps throughput per connection. 0 disables limiting.
	RequestsPerSecond float64
}

// NewServer creates a server with an empty handler table.
func NewServer(opts ServerOptions) *Server {
	s := &Server{
		logger:   opts.Logger,
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[string]io.Closer),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = ratelimit.New(opts.RequestsPerSecond, burst)
	}
	return s
}

// Handle registers a handler for an action. Not safe to call once the
// server is serving.
func (s *Server) Handle(action string, h HandlerFunc) {
	s.handlers[action] = h
}

// Serve accepts connections until ctx is canceled or the listener fails.
// Each connection gets its own id for logging and rate limiting.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		connID := id.MustGenerate("client")
		s.track(connID, conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(connID)
			defer conn.Close()

			if err := s.ServeConn(ctx, connID, conn); err != nil && ctx.Err() == nil {
				s.logger.Warn("connection closed with error", "conn", connID, "error", err)
			}
		}()
	}
}

// ServeConn runs the frame loop for a single connection until the peer
// closes it or ctx is canceled. Used directly for the stdio channel, where
// the parent process owns the pipe lifetime.
func (s *Server) ServeConn(ctx context.Context, connID string, rw io.ReadWriter) error {
	reader := newFrameReader(rw)
	writer := newFrameWriter(rw)

	if s.limiter != nil {
		defer s.limiter.Forget(connID)
	}

	s.logger.Debug("caller connected", "conn", connID)

	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		var req Request
		if err := reader.Read(&req); err != nil {
			if err == io.EOF {
				s.logger.Debug("caller disconnected", "conn", connID)
				return nil
			}
			return err
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, connID); err != nil {
				return err
			}
		}

		pending.Add(1)
		go func(req Request) {
			defer pending.Done()
			s.dispatch(ctx, connID, writer, req)
		}(req)
	}
}

// dispatch runs one request through its handler and writes the response.
func (s *Server) dispatch(ctx context.Context, connID string, writer *frameWriter, req Request) {
	resp := Response{ID: req.ID}

	handler, ok := s.handlers[req.Action]
	if !ok {
		resp.Error = errorPayloadFrom(apperrors.Validation("unknown action: " + req.Action))
	} else {
		data, err := handler(ctx, req.Payload)
		switch {
		case err != nil:
			s.logger.Debug("request failed",
				"conn", connID, "action", req.Action, "error", err)
			resp.Error = errorPayloadFrom(err)
		case data != nil:
			encoded, encErr := json.Marshal(data)
			if encErr != nil {
				resp.Error = errorPayloadFrom(apperrors.Wrap(encErr, apperrors.CodeInternal, "encode response"))
			} else {
				resp.OK = true
				resp.Data = jsontext.Value(encoded)
			}
		default:
			resp.OK = true
		}
	}

	if err := writer.Write(resp); err != nil {
		s.logger.Warn("failed to write response", "conn", connID, "error", err)
	}
}

// Shutdown closes all tracked connections and waits for their loops.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) track(connID string, conn io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = conn
}

func (s *Server) untrack(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}
