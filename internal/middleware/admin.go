package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/utils"
)

// AdminRequired returns an Echo middleware that accepts only requests
// carrying a valid admin gate token in the Authorization header.  The
// token is obtained from the login endpoint after the shared-secret
// compare; this middleware wraps the registration, report, QR and
// export routes.
func AdminRequired(tokenSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			if err := utils.VerifyGateToken(tokenSecret, raw); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			return next(c)
		}
	}
}
