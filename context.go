package goAuthClient

import "context"

type identityContextKey struct{}

// WithIdentity attaches the authenticated user to ctx. Guard middleware uses
// it to hand the restored identity to downstream handlers.
func WithIdentity(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, identityContextKey{}, user.Clone())
}

// IdentityFromContext returns the user attached by [WithIdentity].
func IdentityFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, _ := ctx.Value(identityContextKey{}).(*User)
	return user, user != nil
}
