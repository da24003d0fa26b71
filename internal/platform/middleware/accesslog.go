package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/auth"
)

// Context keys a handler sets to describe the action it performed.
const (
	AccessActionKey = "access_action"
	AccessUserKey   = "access_user_id"
)

// AccessRecorder persists one access log row.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, userID int64, action string) error
}

// AccessRecorderFunc is a function adapter for AccessRecorder.
type AccessRecorderFunc func(ctx context.Context, userID int64, action string) error

func (f AccessRecorderFunc) RecordAccess(ctx context.Context, userID int64, action string) error {
	return f(ctx, userID, action)
}

// SetAccessAction names the action recorded for the current request.
func SetAccessAction(c echo.Context, action string) {
	c.Set(AccessActionKey, action)
}

// SetAccessUser attributes the current request to userID. Login handlers use
// it because the request itself carries no identity yet.
func SetAccessUser(c echo.Context, userID int64) {
	c.Set(AccessUserKey, userID)
}

// AccessLog records successful requests under /api in the access log. A
// request is recorded when its handler named an action with SetAccessAction,
// or when it is a successful write (the action is then "METHOD path").
// Requests without an identifiable user are skipped. A recorder failure is
// logged and never fails the request.
func AccessLog(logger zerolog.Logger, rec AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}

			action, _ := c.Get(AccessActionKey).(string)
			if action == "" {
				if !isWrite(req.Method) {
					return nil
				}
				path := c.Path()
				if path == "" {
					path = req.URL.Path
				}
				action = req.Method + " " + path
			}

			userID, ok := c.Get(AccessUserKey).(int64)
			if !ok {
				// logs_acesso references operator accounts only
				if !auth.HasRole(req.Context(), auth.RoleUser) {
					return nil
				}
				userID = auth.UserIDFromContext(req.Context())
			}
			if userID == 0 {
				return nil
			}

			if recErr := rec.RecordAccess(context.WithoutCancel(req.Context()), userID, action); recErr != nil {
				rid, _ := c.Get("request_id").(string)
				logger.Error().Err(recErr).
					Str("request_id", rid).
					Int64("user_id", userID).
					Str("action", action).
					Msg("failed to record access log")
			}
			return nil
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
