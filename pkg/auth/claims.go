package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a restaurant token.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	RestaurantID uuid.UUID
	Role         string
	JTI          string
}

// AccessTokenClaims is the JWT issued to restaurant staff by the auth service.
type AccessTokenClaims struct {
	UserID       uuid.UUID `json:"user_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Role         string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ServiceTokenClaims identifies a trusted internal caller such as the scheduler.
type ServiceTokenClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}
