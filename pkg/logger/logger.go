// Package logger configures the process-wide slog logger and carries
// request-scoped attributes through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

type requestAttrs struct {
	requestID string
	document  string
}

// Setup installs the default logger writing to stdout.
func Setup(level string, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs the default logger writing to w. The CLI uses it to
// keep logs on stderr and results on stdout.
func SetupWriter(w io.Writer, level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	attrs := attrsFrom(ctx)
	attrs.requestID = requestID
	return context.WithValue(ctx, contextKey{}, attrs)
}

// WithDocument records the document a request is working on.
func WithDocument(ctx context.Context, name string) context.Context {
	attrs := attrsFrom(ctx)
	attrs.document = name
	return context.WithValue(ctx, contextKey{}, attrs)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	return attrsFrom(ctx).requestID
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	attrs := attrsFrom(ctx)
	if attrs.requestID != "" {
		logger = logger.With("request_id", attrs.requestID)
	}
	if attrs.document != "" {
		logger = logger.With("document", attrs.document)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func attrsFrom(ctx context.Context) requestAttrs {
	attrs, _ := ctx.Value(contextKey{}).(requestAttrs)
	return attrs
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
