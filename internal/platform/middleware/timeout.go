package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout gives each request context a deadline. The handler runs on
// the request goroutine and storage calls observe the deadline; if it passed
// before anything was written the client gets 504. Paths under one of the
// skip prefixes (backup and export streams) get no deadline.
func RequestTimeout(timeout time.Duration, skipPrefixes ...string) echo.MiddlewareFunc {
	skip := func(path string) bool {
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skip(req.URL.Path) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "Tempo limite da requisição excedido")
			}
			return err
		}
	}
}
