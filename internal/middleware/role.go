package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user holds one of the
// given roles.  It assumes JWTAuth already stored the role claim in the
// context.  A missing or unexpected role yields 403; role membership is
// a plain set test, there is no multi-role composition.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": echo.Map{
					"code": "Forbidden", "message": "insufficient role"}})
			}
			return next(c)
		}
	}
}
