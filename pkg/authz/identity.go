// Package authz is the bearer-token authentication and collectivite access
// adapter. It has no algorithmic content: it extracts the caller identity,
// exposes it through the request context and gates per-collectivite routes.
package authz

import "context"

// Identity is the authenticated caller: the subject plus the collectivites
// and scopes the token grants.
type Identity struct {
	Subject       string
	Collectivites []string
	Scopes        []string
}

// identityKey is an unexported type used as the context key for Identity.
type identityKey struct{}

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context. Returns the
// zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// CanAccess reports whether the identity may operate on the collectivite.
func (id Identity) CanAccess(collectiviteID string) bool {
	for _, c := range id.Collectivites {
		if c == collectiviteID {
			return true
		}
	}
	return false
}

// HasScope reports whether the identity carries the scope.
func (id Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
