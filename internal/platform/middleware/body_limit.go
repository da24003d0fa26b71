package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit caps request bodies at limit, written as "512K", "10M", "1G" or
// a bare byte count. Oversized bodies get 413.
func BodyLimit(limit string) echo.MiddlewareFunc {
	max := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > max {
				return payloadTooLarge(max)
			}

			req.Body = &cappedBody{ReadCloser: req.Body, left: max, limit: max}
			return next(c)
		}
	}
}

// cappedBody fails the read that would cross the limit, so handlers see a
// 413 even when Content-Length was absent or understated.
type cappedBody struct {
	io.ReadCloser
	left  int64
	limit int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, payloadTooLarge(b.limit)
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.ReadCloser.Read(p)
	if b.left -= int64(n); b.left < 0 {
		return 0, payloadTooLarge(b.limit)
	}
	return n, err
}

func payloadTooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Corpo da requisição excede o limite de %d bytes", limit))
}

const defaultBodyLimit = 1 << 20

var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"G", 30},
	{"MB", 20}, {"M", 20},
	{"KB", 10}, {"K", 10},
	{"B", 0},
}

// parseLimit falls back to 1 MB when s is empty or malformed.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, shift = strings.TrimSuffix(s, u.suffix), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n << shift
}
