package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-management/internal/apperr"
)

// dbTimeoutSeconds bounds every database call made from a handler.
const dbTimeoutSeconds = 5

// getUserID extracts the authenticated user id stored by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("missing user_id in context")
}

// getRole extracts the role claim stored by the JWT middleware.
func getRole(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// writeErr renders a typed error as the standard JSON error body.
func writeErr(c echo.Context, e *apperr.Error) error {
	return c.JSON(e.HTTPStatus(), echo.Map{"error": e})
}

// internalErr hides infrastructure details behind a generic failure.
func internalErr(c echo.Context) error {
	return writeErr(c, apperr.New(apperr.CodeInternal, "internal error"))
}
