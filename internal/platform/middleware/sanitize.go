package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Logged only. Parameterized statements make these harmless.
	sqlPatterns = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script payloads in the query string. Every rejection and
// every SQL-looking parameter is recorded in events when it is non-nil.
func Sanitize(logger zerolog.Logger, events *SecurityLog) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			reject := func(detail string) error {
				if events != nil {
					events.Record(SecurityEvent{
						Kind:      EventBlockedInput,
						IP:        c.RealIP(),
						Method:    req.Method,
						Path:      path,
						Detail:    detail,
						UserAgent: req.UserAgent(),
					})
				}
				return echo.NewHTTPError(http.StatusBadRequest, detail)
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return reject("Caminho inválido")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return reject("Caractere nulo não permitido")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return reject("Cabeçalho excede o tamanho máximo: " + name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return reject("Cabeçalho inválido: " + name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(v) || containsNullByte(key) {
						return reject("Caractere nulo não permitido em parâmetro")
					}
					if sqlPatterns.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", path).
							Str("remote_ip", c.RealIP()).
							Msg("suspicious SQL pattern in query parameter")
						if events != nil {
							events.Record(SecurityEvent{
								Kind:   EventSuspectInput,
								IP:     c.RealIP(),
								Method: req.Method,
								Path:   path,
								Detail: key,
							})
						}
					}
					if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
						return reject("Conteúdo não permitido em parâmetro")
					}
				}
			}

			return next(c)
		}
	}
}

func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	if strings.ContainsRune(s, '\x00') {
		return true
	}
	return strings.Contains(strings.ToLower(s), "%00")
}

// SanitizeString strips null bytes and control characters other than
// newline, carriage return and tab, then trims surrounding whitespace.
// Handlers apply it to free-text fields before storing them.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\x00' {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
