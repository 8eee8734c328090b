package auth

import (
	"context"

	"github.com/rfachrizal/mutabaah/internal/model"
)

// Identity is the authenticated principal carried through a request.
// ClassTag is set only for teachers and scopes their student visibility.
type Identity struct {
	ID       string
	Role     model.Role
	ClassTag string
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func IsAdmin(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	return ok && id.Role == model.RoleAdmin
}

// CanManage reports whether the caller may mutate the given student's record.
// Students manage only themselves, teachers their own class, admins everyone.
func CanManage(ctx context.Context, st *model.Student) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	switch id.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTeacher:
		return st.ClassName == id.ClassTag
	case model.RoleStudent:
		return st.ID == id.ID
	}
	return false
}
