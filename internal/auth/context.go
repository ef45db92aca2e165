package auth

import "context"

type principalContextKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	User User
}

// ID returns the caller's user id.
func (p Principal) ID() string { return p.User.ID }

// Role returns the caller's role.
func (p Principal) Role() Role { return p.User.Role }

// Is reports whether the caller has role r.
func (p Principal) Is(r Role) bool { return p.User.Role == r }

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// RequireRole returns the principal when it holds one of roles.
func RequireRole(ctx context.Context, roles ...Role) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	for _, r := range roles {
		if p.Is(r) {
			return p, nil
		}
	}
	return p, ErrForbidden
}
