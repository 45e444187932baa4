package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxRole    contextKey = "actor_role"
	ctxStoreID contextKey = "store_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreID).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the lifecycle actor seeded by Auth.
func ActorFromContext(ctx context.Context) (lifecycle.Actor, bool) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return lifecycle.Actor{}, false
	}
	role, err := enums.ParseActorRole(RoleFromContext(ctx))
	if err != nil {
		return lifecycle.Actor{}, false
	}
	actor := lifecycle.Actor{UserID: userID, Role: role}
	if raw := StoreIDFromContext(ctx); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			return lifecycle.Actor{}, false
		}
		actor.StoreID = &storeID
	}
	return actor, true
}

// WithActor injects an actor into the context. Used by tests and internal callers.
func WithActor(ctx context.Context, actor lifecycle.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(actor.Role))
	if actor.StoreID != nil {
		ctx = context.WithValue(ctx, ctxStoreID, actor.StoreID.String())
	}
	return ctx
}
