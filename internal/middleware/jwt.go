package middleware // reusable HTTP middleware shared by all route groups

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-management/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the verified identity into the request context
// under "user_id" (uint64) and "role" (string).  Missing, malformed and
// expired tokens all produce the same 401 body so callers cannot tell
// which check failed.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": echo.Map{
					"code": "Unauthenticated", "message": "missing bearer token"}})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": echo.Map{
					"code": "Unauthenticated", "message": "invalid or expired token"}})
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}
