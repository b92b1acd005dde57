// Package context carries request-scoped values shared between the
// transport middleware and the logging layer.
package context

import "context"

type requestIDKeyType struct{}

var requestIDKey requestIDKeyType

// WithRequestID returns a child context annotated with the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id or "" when none was set.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
