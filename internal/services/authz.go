package services

import (
	"context"

	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
)

// CurrentIdentity returns the caller's identity, or ErrUnauthenticated for
// anonymous requests.
func CurrentIdentity(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// RequireAdmin distinguishes anonymous callers (ErrUnauthenticated) from
// authenticated non-admins (ErrForbidden). The admin flag comes from the
// token, so a demotion applies once the caller's token expires.
func RequireAdmin(ctx context.Context) (auth.Identity, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if !id.IsAdmin {
		return auth.Identity{}, ErrForbidden
	}
	return id, nil
}
