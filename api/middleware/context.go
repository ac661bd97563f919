package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
)

type principalKey struct{}

// principal is the authenticated caller. A zero value means a guest.
type principal struct {
	userID string
	role   string
}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string { return principalFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return principalFrom(ctx).role }

// WithUserID sets the caller's user id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	p := principalFrom(ctx)
	p.userID = userID
	return withPrincipal(ctx, p)
}

// WithRole sets the caller's role, keeping any user id already present.
func WithRole(ctx context.Context, role string) context.Context {
	p := principalFrom(ctx)
	p.role = role
	return withPrincipal(ctx, p)
}

// ActorFromContext builds the order actor for the request. Requests that
// passed through OptionalAuth without a token yield a guest actor.
func ActorFromContext(ctx context.Context) orders.Actor {
	p := principalFrom(ctx)
	id, err := uuid.Parse(p.userID)
	if err != nil {
		return orders.Actor{}
	}
	return orders.Actor{UserID: &id, Role: enums.UserRole(p.role)}
}
