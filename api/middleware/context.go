package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID       contextKey = "user_id"
	ctxRestaurantID contextKey = "restaurant_id"
	ctxService      contextKey = "service"
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

// RestaurantIDFromContext returns the restaurant the caller's token is scoped to.
func RestaurantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxRestaurantID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// ServiceFromContext names the internal caller authenticated by ServiceAuth.
func ServiceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxService).(string); ok {
		return v
	}
	return ""
}

// WithRestaurantID injects the restaurant scope. Used by tests and by RestaurantAuth.
func WithRestaurantID(ctx context.Context, restaurantID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRestaurantID, restaurantID)
}
