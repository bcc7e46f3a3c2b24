package goEventHub

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation id to ctx. The next backend request made
// with ctx sends it as X-Request-ID instead of a generated uuid, and the
// action event carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
