package httpserver

import "context"

type authContextKey string

const (
	userIDKey authContextKey = "userId"
	roleKey   authContextKey = "role"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(userIDKey).(string)
	return value, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(roleKey).(string)
	return value, ok
}
