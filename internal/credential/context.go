package credential

import "context"

type callerKey struct{}

// Caller is the identity of the request's caller
type Caller struct {
	Token    string
	DomainID string
}

// WithCaller returns a copy of ctx carrying the caller
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored in ctx, if any
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// CallerToken returns the caller's bearer token stored in ctx, or ""
func CallerToken(ctx context.Context) string {
	c, _ := CallerFrom(ctx)
	return c.Token
}
