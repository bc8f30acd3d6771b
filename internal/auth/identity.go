package auth

import "context"

// AdminRoleID is the role carried by administrator tokens.
const AdminRoleID int64 = 0

// Identity is the authenticated caller, passed explicitly into services that authorise.
type Identity struct {
	UserID int64
	RoleID int64
}

// IsAdmin reports whether the caller holds the administrator role.
func (i Identity) IsAdmin() bool {
	return i.RoleID == AdminRoleID
}

// CanAccessUser reports whether the caller may read data belonging to userID.
func (i Identity) CanAccessUser(userID int64) bool {
	return i.IsAdmin() || i.UserID == userID
}

type contextKey string

const identityContextKey contextKey = "plumbstore/internal/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}
