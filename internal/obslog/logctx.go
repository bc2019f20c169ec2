package obslog

import "context"

// Fields carries the request-scoped identifiers that every in-scope log
// event should include. It is threaded explicitly through calls rather than
// stashed in a goroutine-local, per the "implicit context propagation"
// redesign: callers pass ctx and get the fields back out via FromContext.
type Fields struct {
	RequestID string
	SessionID string
	Group     string
}

type ctxKey struct{}

// WithFields returns a context carrying f, replacing any fields already set.
func WithFields(ctx context.Context, f Fields) context.Context {
	return context.WithValue(ctx, ctxKey{}, f)
}

// FromContext returns the Fields previously attached with WithFields, or
// the zero value if none were set.
func FromContext(ctx context.Context) Fields {
	f, _ := ctx.Value(ctxKey{}).(Fields)
	return f
}
