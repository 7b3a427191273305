package argo

import "context"

type principalKey struct{}

// WithPrincipal returns a context carrying the service identity that
// write-backs are attributed to.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom returns the service identity stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey{}).(string)
	return p, ok && p != ""
}
