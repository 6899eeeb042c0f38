package auth

import (
	"context"

	"fleetkeys/internal/models"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

// Claims is the verified caller identity threaded through the request
// context. Operations take explicit ids from here; nothing reads ambient
// session state.
type Claims struct {
	Subject string
	Role    models.Role
	JWTID   string
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}
