package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/dishdash-backend/pkg/auth"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
)

var (
	accessCfg   = config.AccessTokenConfig{Secret: "restaurant-secret", Issuer: "dishdash-auth", TTL: time.Hour}
	internalCfg = config.InternalAuthConfig{Secret: "internal-secret", Issuer: "dishdash-internal", TokenTTL: time.Minute}
)

func okHandler(captured *http.Request) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRestaurantAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	var captured http.Request
	handler := RestaurantAuth(accessCfg, nil)(okHandler(&captured))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRestaurantAuthScopesRequest(t *testing.T) {
	restaurantID := uuid.New()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(accessCfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, RestaurantID: restaurantID})
	require.NoError(t, err)

	var captured http.Request
	handler := RestaurantAuth(accessCfg, nil)(okHandler(&captured))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	got, ok := RestaurantIDFromContext(captured.Context())
	assert.True(t, ok)
	assert.Equal(t, restaurantID, got)
	assert.Equal(t, userID.String(), UserIDFromContext(captured.Context()))
}

func TestRestaurantAuthRejectsServiceTokens(t *testing.T) {
	token, err := pkgAuth.MintServiceToken(config.InternalAuthConfig{Secret: accessCfg.Secret, Issuer: accessCfg.Issuer}, time.Now(), "scheduler")
	require.NoError(t, err)

	var captured http.Request
	handler := RestaurantAuth(accessCfg, nil)(okHandler(&captured))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceAuth(t *testing.T) {
	token, err := pkgAuth.MintServiceToken(internalCfg, time.Now(), "scheduler")
	require.NoError(t, err)
	restaurantToken, err := pkgAuth.MintAccessToken(accessCfg, time.Now(), pkgAuth.AccessTokenPayload{RestaurantID: uuid.New()})
	require.NoError(t, err)

	var captured http.Request
	handler := ServiceAuth(internalCfg, nil)(okHandler(&captured))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "scheduler", ServiceFromContext(captured.Context()))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+restaurantToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
