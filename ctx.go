package session

import (
	"context"

	"github.com/goliatone/go-router"
)

const userLocalsKey = "session_user"

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// FromRouterContext finds the user the guard middleware attached to the
// request, for handlers running behind it.
func FromRouterContext(ctx router.Context) (*User, bool) {
	raw := ctx.Locals(userLocalsKey)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}
