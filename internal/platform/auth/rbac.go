package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Administrators do not pass implicitly: their ids
// reference a different table than the ones domain rows point at.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, required := range roles {
				if HasRole(ctx, required) {
					return next(c)
				}
			}
			if len(roles) == 1 && roles[0] == RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Acesso negado - apenas administradores")
			}
			return echo.NewHTTPError(http.StatusForbidden, "Acesso negado")
		}
	}
}

// RequireAdmin is RequireRole(RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(RoleAdmin)
}
