package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey string

const requestIDKey contextKey = "requestID"

var errToolFailed = errors.New("tool returned an error result")

// RequestIDFromContext returns the request ID from the context, or empty string if not set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestID returns a new context with the request ID set.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// requestMiddleware tags every inbound method with a request ID, logs it and
// records it with the telemetry collector.
func (s *MCPNoteServer) requestMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		id := RequestIDFromContext(ctx)
		if id == "" {
			id = uuid.NewString()
			ctx = ContextWithRequestID(ctx, id)
		}

		ctx, done := s.telemetry.StartRequest(ctx, method, id)
		start := time.Now()
		s.logger.Debug("Handling MCP request", "method", method, "request_id", id)

		result, err := next(ctx, method, req)

		outcome := err
		if res, ok := result.(*mcp.CallToolResult); ok && err == nil && res != nil && res.IsError {
			outcome = errToolFailed
		}
		done(outcome)

		if outcome != nil {
			s.logger.Warn("MCP request failed", "method", method, "request_id", id,
				"duration", time.Since(start), "error", outcome)
		} else {
			s.logger.Debug("MCP request completed", "method", method, "request_id", id,
				"duration", time.Since(start))
		}
		return result, err
	}
}
