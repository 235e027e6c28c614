// Package tenancy resolves which collectivite a request operates on and
// carries it through the request context. Projects, weights and run
// documents are all partitioned per collectivite.
package tenancy

import "context"

// ctxKey is an unexported type used as the context key for CollectiviteContext.
type ctxKey struct{}

// CollectiviteContext carries the resolved collectivite through the request
// context.
type CollectiviteContext struct {
	ID string
}

// WithCollectivite returns a new context with the given collectivite attached.
func WithCollectivite(ctx context.Context, cc CollectiviteContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, cc)
}

// FromContext retrieves the CollectiviteContext from the context. Returns
// the zero value and false if none is set.
func FromContext(ctx context.Context) (CollectiviteContext, bool) {
	cc, ok := ctx.Value(ctxKey{}).(CollectiviteContext)
	return cc, ok
}

// IDFromContext is a convenience function that returns the collectivite id
// from the context, or "" if none is set.
func IDFromContext(ctx context.Context) string {
	cc, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return cc.ID
}
