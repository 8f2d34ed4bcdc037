package tenantctx

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingIdentity is returned when an operation runs without a caller
// identity in context. The identity middleware always sets one, so this
// surfaces wiring mistakes, not client errors.
var ErrMissingIdentity = errors.New("missing_identity")

// Roles known to the system, lowest to highest. The hierarchy is enforced by
// the authorization service; these are the canonical names carried in claims.
const (
	RoleMember      = "member"
	RolePremiumUser = "premium_user"
	RoleInstructor  = "instructor"
	RoleAdmin       = "admin"

	AnonymousUserID = "anonymous"
)

// Identity is the verified caller context for one request. TenantID is never
// taken from a request body; it comes from claims, the X-Tenant-ID header, or
// the configured default, in that order.
type Identity struct {
	TenantID string
	UserID   string
	Role     string
}

type identityKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, if set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(identity.TenantID) == "" {
		return Identity{}, false
	}
	return identity, true
}

// TenantID returns the tenant id from context, if set.
func TenantID(ctx context.Context) (string, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return identity.TenantID, true
}

// NormalizeRole maps unknown or empty roles to member.
func NormalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleInstructor:
		return RoleInstructor
	case RolePremiumUser:
		return RolePremiumUser
	default:
		return RoleMember
	}
}
