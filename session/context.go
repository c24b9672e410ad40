package session

import "context"

type callerKey struct{}

// WithCaller returns a context carrying caller.
func WithCaller(ctx context.Context, caller CallerID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller carried by ctx.
func CallerFrom(ctx context.Context) (CallerID, bool) {
	if ctx == nil {
		return 0, false
	}
	c, ok := ctx.Value(callerKey{}).(CallerID)
	return c, ok && c != 0
}
