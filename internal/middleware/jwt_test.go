package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/conference-management/internal/utils"
)

const testSecret = "middleware-test-secret"

func runWithAuth(t *testing.T, header string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	require.NoError(t, h(c))
	return rec
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "CHAIR", 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		called = true
		assert.Equal(t, uint64(7), c.Get("user_id"))
		assert.Equal(t, "CHAIR", c.Get("role"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.True(t, called)
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	missing := runWithAuth(t, "", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	garbage := runWithAuth(t, "Bearer not-a-token", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)

	other, err := utils.NewAccessToken("other-secret", 7, "CHAIR", 15)
	require.NoError(t, err)
	forged := runWithAuth(t, "Bearer "+other.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, forged.Code)
}

func TestRequireRole(t *testing.T) {
	chair, err := utils.NewAccessToken(testSecret, 7, "CHAIR", 15)
	require.NoError(t, err)
	author, err := utils.NewAccessToken(testSecret, 8, "AUTHOR", 15)
	require.NoError(t, err)

	allowed := runWithAuth(t, "Bearer "+chair.Token, JWTAuth(testSecret), RequireRole("CHAIR", "ADMIN"))
	assert.Equal(t, http.StatusOK, allowed.Code)

	denied := runWithAuth(t, "Bearer "+author.Token, JWTAuth(testSecret), RequireRole("CHAIR", "ADMIN"))
	assert.Equal(t, http.StatusForbidden, denied.Code)
}
