package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// SystemIDKey is the context key for the system being assessed.
	SystemIDKey contextKey = "system_id"

	// ModelRefKey is the context key for the knowledge model reference.
	ModelRefKey contextKey = "model_ref"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSystemID adds a system identifier to the context.
func WithSystemID(ctx context.Context, systemID string) context.Context {
	return context.WithValue(ctx, SystemIDKey, systemID)
}

// GetSystemID retrieves the system identifier from the context.
func GetSystemID(ctx context.Context) string {
	if id, ok := ctx.Value(SystemIDKey).(string); ok {
		return id
	}
	return ""
}

// WithModelRef adds a model reference to the context.
func WithModelRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ModelRefKey, ref)
}

// GetModelRef retrieves the model reference from the context.
func GetModelRef(ctx context.Context) string {
	if ref, ok := ctx.Value(ModelRefKey).(string); ok {
		return ref
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, slog.String(string(RequestIDKey), id))
	}
	if id := GetSystemID(ctx); id != "" {
		fields = append(fields, slog.String(string(SystemIDKey), id))
	}
	if ref := GetModelRef(ctx); ref != "" {
		fields = append(fields, slog.String(string(ModelRefKey), ref))
	}
	return fields
}
