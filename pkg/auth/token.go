package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintAccessToken issues a signed restaurant JWT. Production tokens come from the
// auth service; this is used by tests and local tooling.
func MintAccessToken(cfg config.AccessTokenConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}
	if payload.RestaurantID == uuid.Nil {
		return "", fmt.Errorf("restaurant id is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID:       payload.UserID,
		RestaurantID: payload.RestaurantID,
		Role:         payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        jti,
		},
	}
	return sign(cfg.Secret, claims)
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.AccessTokenConfig, tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := parse(cfg.Secret, cfg.Issuer, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.RestaurantID == uuid.Nil {
		return nil, fmt.Errorf("token missing restaurant_id")
	}
	return claims, nil
}

// MintServiceToken issues a short-lived token for an internal caller.
func MintServiceToken(cfg config.InternalAuthConfig, now time.Time, service string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("internal token secret is required")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return "", fmt.Errorf("service name is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	claims := ServiceTokenClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return sign(cfg.Secret, claims)
}

// ParseServiceToken validates an internal caller token.
func ParseServiceToken(cfg config.InternalAuthConfig, tokenString string) (*ServiceTokenClaims, error) {
	claims := &ServiceTokenClaims{}
	if err := parse(cfg.Secret, cfg.Issuer, tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Service) == "" {
		return nil, fmt.Errorf("token missing service")
	}
	return claims, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(secret, issuer, tokenString string, claims jwt.Claims) error {
	if secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwtSigningMethod.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		opts...,
	)
	return err
}
