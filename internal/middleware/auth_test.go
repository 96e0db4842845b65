package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vacuumvp-service/pkg/config"
	"vacuumvp-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestContext(token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "mw-test-key", ExpirationTime: time.Hour})
	token, err := jwtutil.GenerateToken("a@example.com", "user-id", "admin")
	require.NoError(t, err)

	c, rec := authTestContext("Bearer " + token)
	require.NoError(t, AuthMiddleware(okHandler)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-id", c.Get("user_id"))
	assert.Equal(t, "a@example.com", c.Get("email"))
	assert.Equal(t, "admin", c.Get("user_role"))
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	c, rec := authTestContext("")
	require.NoError(t, AuthMiddleware(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	c, rec := authTestContext("Token abc")
	require.NoError(t, AuthMiddleware(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "mw-test-key", ExpirationTime: time.Hour})

	c, rec := authTestContext("Bearer not.a.token")
	require.NoError(t, AuthMiddleware(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	c, rec := authTestContext("")
	c.Set("user_role", "admin")
	require.NoError(t, RequireAdmin(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = authTestContext("")
	c.Set("user_role", "distributer")
	require.NoError(t, RequireAdmin(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyRole(t *testing.T) {
	for _, role := range []string{"admin", "distributer"} {
		c, rec := authTestContext("")
		c.Set("user_role", role)
		require.NoError(t, RequireAnyRole(okHandler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	c, rec := authTestContext("")
	require.NoError(t, RequireAnyRole(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
