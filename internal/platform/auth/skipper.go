package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: health checks and
// the two login endpoints.
var publicPaths = map[string]bool{
	"/health":          true,
	"/health/db":       true,
	"/api/health":      true,
	"/api/login":       true,
	"/api/admin/login": true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
// Pass this function as the Skipper on JWTConfig.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
