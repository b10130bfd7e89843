package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func protectedHandler(t *testing.T, gotUserID, gotRole *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserID(r.Context())
		role, _ := Role(r.Context())
		*gotUserID, *gotRole = id, role
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(protectedHandler(t, &id, &role))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsBadSignature(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(protectedHandler(t, &id, &role))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	s, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareAcceptsSubClaim(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(protectedHandler(t, &id, &role))

	s := signToken(t, jwt.MapClaims{
		"sub":  "user-42",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", id)
	assert.Equal(t, "admin", role)
}

func TestJWTMiddlewareFallsBackToUserIdClaim(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(protectedHandler(t, &id, &role))

	s := signToken(t, jwt.MapClaims{"userId": "legacy-7"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "legacy-7", id)
	assert.Equal(t, "user", role, "missing role defaults to user")
}

func TestRequireRoleBlocksNonAdmin(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(RequireRole("admin")(protectedHandler(t, &id, &role)))

	s := signToken(t, jwt.MapClaims{"sub": "user-1"})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	var id, role string
	h := JWTMiddleware(testSecret)(RequireRole("admin")(protectedHandler(t, &id, &role)))

	s := signToken(t, jwt.MapClaims{"sub": "root", "role": "admin"})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
