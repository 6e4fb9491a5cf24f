package utils

import (
	"context"
)

type contextKey string

const ContextUserIDKey contextKey = "userID"
const ContextRoleKey contextKey = "role"

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

// GetRoleFromContext returns the role set by AdminMiddleware or RoleMiddleware.
func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ContextRoleKey).(string)
	return role
}
