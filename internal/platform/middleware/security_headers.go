package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP    = "default-src 'none'; frame-ancestors 'none'"
	clientCSP = "default-src 'self'; img-src 'self' data:; frame-ancestors 'none'"
)

var baseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// SecurityHeaders hardens every response. JSON under /api gets a deny-all
// content policy and no-store; the static web client may load its own assets.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range baseHeaders {
				h.Set(kv[0], kv[1])
			}
			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Cache-Control", "no-store")
			} else {
				h.Set("Content-Security-Policy", clientCSP)
			}
			return next(c)
		}
	}
}
