package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// HTTPErrorHandler writes every failure as {"error": "..."}. Errors that are
// not already HTTP errors go through apperr so storage details stay in the
// log.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			he = apperr.HTTP(err).(*echo.HTTPError)
		}

		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		if he.Code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			logger.Error().Err(cause).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, ErrorBody{Error: msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}
