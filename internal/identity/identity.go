package identity

import (
	"context"

	"orderhub/internal/models"

	"github.com/google/uuid"
)

// Actor — аутентифицированный пользователь, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r models.Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (models.Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(models.Role)
	return v, ok
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return WithRole(WithUserID(ctx, a.ID), a.Role)
}

// ActorFromContext требует и id, и роль.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid == uuid.Nil {
		return Actor{}, false
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: uid, Role: role}, true
}
