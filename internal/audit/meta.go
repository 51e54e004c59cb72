package audit

import "context"

// RequestMeta is the per-request metadata copied onto audit records.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

type metaContextKey struct{}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaContextKey{}, meta)
}

// MetaFromContext returns the request metadata, or the zero value outside a
// request.
func MetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaContextKey{}).(RequestMeta)
	return meta
}
