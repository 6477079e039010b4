package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// RequestIDHeader carries a caller-supplied correlation id
const RequestIDHeader = "Request-Id"

// Error types reported in response envelopes
const (
	ErrorTypeInvalidInput      = "invalid_input"
	ErrorTypeNotFound          = "not_found"
	ErrorTypeUnsupportedFormat = "unsupported_format"
	ErrorTypeFetch             = "fetch_failed"
	ErrorTypeInternal          = "internal"
)

// Handler serves one operation; the result is JSON-encoded into the reply
type Handler func(ctx context.Context, data []byte) (any, error)

// Response is the reply envelope for every operation
type Response struct {
	RequestID string          `json:"requestId"`
	Operation string          `json:"operation"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// JSONHandler adapts a typed request function into a Handler
func JSONHandler[T any](fn func(ctx context.Context, req T) (any, error)) Handler {
	return func(ctx context.Context, data []byte) (any, error) {
		var req T
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, &entity.InvalidInputError{Field: "request", Reason: err.Error()}
		}
		return fn(ctx, req)
	}
}

// NATSTraceServer answers trace requests over NATS request/reply
type NATSTraceServer struct {
	conn     *nats.Conn
	subs     []*nats.Subscription
	handlers map[string]Handler
	config   *config.NATSConfig
	logger   *logger.Logger

	// mu guards conn, subs and stopping
	mu       sync.Mutex
	stopping bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewNATSTraceServer creates a new trace server
func NewNATSTraceServer(cfg *config.NATSConfig, logger *logger.Logger) *NATSTraceServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &NATSTraceServer{
		handlers: make(map[string]Handler),
		config:   cfg,
		logger:   logger.WithComponent("nats-trace-server"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handle registers the handler for <prefix>.<operation>; call before Start
func (s *NATSTraceServer) Handle(operation string, h Handler) {
	s.handlers[operation] = h
}

// Subject returns the subject an operation is served on
func (s *NATSTraceServer) Subject(operation string) string {
	return fmt.Sprintf("%s.%s", s.config.SubjectPrefix, operation)
}

// Start connects to NATS and subscribes every registered operation
func (s *NATSTraceServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	s.logger.Info("Connecting to NATS server", zap.String("url", s.config.URL))

	opts := []nats.Option{
		nats.Name("crypto-flow-tracer"),
		nats.Timeout(s.config.ConnectTimeout),
		nats.ReconnectWait(s.config.ReconnectDelay),
		nats.MaxReconnects(s.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			s.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			s.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(s.config.URL, opts...)
	if err != nil {
		s.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for operation := range s.handlers {
		op := operation
		subject := s.Subject(op)
		sub, err := conn.QueueSubscribe(subject, s.config.QueueGroup, func(msg *nats.Msg) {
			s.serve(op, msg)
		})
		if err != nil {
			s.logger.Error("Failed to subscribe to subject", zap.String("subject", subject), zap.Error(err))
			s.Stop()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.mu.Lock()
		s.subs = append(s.subs, sub)
		s.mu.Unlock()

		s.logger.Info("Serving trace operation",
			zap.String("subject", subject),
			zap.String("queue_group", s.config.QueueGroup))
	}

	return conn.FlushWithContext(ctx)
}

// serve answers one message; handlers may run concurrently across subjects
func (s *NATSTraceServer) serve(operation string, msg *nats.Msg) {
	if !s.begin() {
		s.logger.Debug("Dropping request received during shutdown", zap.String("operation", operation))
		return
	}
	defer s.wg.Done()

	reply := s.handle(operation, msg)
	if msg.Reply == "" {
		s.logger.Warn("Dropping reply for request without reply subject", zap.String("operation", operation))
		return
	}
	if err := msg.Respond(reply); err != nil {
		s.logger.Error("Failed to send reply", zap.String("operation", operation), zap.Error(err))
	}
}

// handle runs the handler for operation and encodes the reply envelope
func (s *NATSTraceServer) handle(operation string, msg *nats.Msg) []byte {
	start := time.Now()
	resp := Response{
		RequestID: requestID(msg),
		Operation: operation,
	}

	ctx := s.ctx
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	result, err := s.dispatch(ctx, operation, msg.Data)
	if err == nil {
		resp.Result, err = json.Marshal(result)
	}
	if err != nil {
		resp.Error = errorBody(err)
		s.logger.Warn("Trace request failed",
			zap.String("request_id", resp.RequestID),
			zap.String("operation", operation),
			zap.String("error_type", resp.Error.Type),
			zap.Error(err))
	}
	resp.ElapsedMs = time.Since(start).Milliseconds()

	s.logger.Debug("Handled trace request",
		zap.String("request_id", resp.RequestID),
		zap.String("operation", operation),
		zap.Int64("elapsed_ms", resp.ElapsedMs))

	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{
			RequestID: resp.RequestID,
			Operation: operation,
			Error:     &ErrorBody{Type: ErrorTypeInternal, Message: err.Error()},
		})
	}
	return data
}

func (s *NATSTraceServer) dispatch(ctx context.Context, operation string, data []byte) (result any, err error) {
	h, ok := s.handlers[operation]
	if !ok {
		return nil, &entity.InvalidInputError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", operation)}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Handler panicked", zap.String("operation", operation), zap.Any("panic", r))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, data)
}

// begin registers an in-flight request unless the server is stopping
func (s *NATSTraceServer) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// Stop unsubscribes, waits for in-flight requests and closes the connection
func (s *NATSTraceServer) Stop() error {
	s.mu.Lock()
	s.stopping = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
		s.logger.Info("Disconnected from NATS")
	}
	return nil
}

// IsConnected checks if connected to NATS
func (s *NATSTraceServer) IsConnected() bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	return conn != nil && conn.IsConnected()
}

func requestID(msg *nats.Msg) string {
	if msg.Header != nil {
		if id := msg.Header.Get(RequestIDHeader); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func errorBody(err error) *ErrorBody {
	var (
		invalid     *entity.InvalidInputError
		notFound    *entity.NotFoundError
		unsupported *entity.UnsupportedFormatError
		fetch       *entity.FetchError
	)
	switch {
	case errors.As(err, &invalid):
		return &ErrorBody{Type: ErrorTypeInvalidInput, Message: err.Error()}
	case errors.As(err, &notFound):
		return &ErrorBody{Type: ErrorTypeNotFound, Message: err.Error()}
	case errors.As(err, &unsupported):
		return &ErrorBody{Type: ErrorTypeUnsupportedFormat, Message: err.Error()}
	case errors.As(err, &fetch):
		return &ErrorBody{Type: ErrorTypeFetch, Message: err.Error()}
	default:
		return &ErrorBody{Type: ErrorTypeInternal, Message: err.Error()}
	}
}
