package ai

import "context"

type contextKey string

const (
	profileIDContextKey contextKey = "profile_id"
	requestIDContextKey contextKey = "request_id"
)

// WithProfileID returns ctx carrying the profile id for generation logs.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDContextKey, profileID)
}

// WithRequestID returns ctx carrying the HTTP request id for generation logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// ExtractRequestID returns the request id set by WithRequestID, or "".
func ExtractRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// ExtractProfileID returns the profile id set by WithProfileID, or "".
func ExtractProfileID(ctx context.Context) string {
	id, _ := ctx.Value(profileIDContextKey).(string)
	return id
}
