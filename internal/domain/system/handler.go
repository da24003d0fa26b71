package system

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the unauthenticated health checks on the root router.
func (h *Handler) RegisterPublic(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(h.svc.store.Pool()))
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/health", h.Health)
	api.GET("/backup", h.Download, auth.RequireRole(auth.RoleUser, auth.RoleAdmin))

	admin := api.Group("/admin")
	adminOnly := auth.RequireAdmin()
	admin.GET("/stats", h.Stats, adminOnly)
	admin.POST("/clear-cache", h.ClearCache, adminOnly)
	admin.POST("/clear-rate-limit", h.ClearRateLimit, adminOnly)
	admin.GET("/security-logs", h.SecurityLogs, adminOnly)
	admin.POST("/backup", h.Backup, adminOnly)
}

func (h *Handler) Health(c echo.Context) error {
	health, err := h.svc.Health(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":    "error",
			"timestamp": h.svc.now().UTC(),
			"error":     apperr.InternalMessage,
		})
	}
	return c.JSON(http.StatusOK, health)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "stats": stats})
}

type clearCacheRequest struct {
	Pattern string `json:"pattern"`
}

func (h *Handler) ClearCache(c echo.Context) error {
	var req clearCacheRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	removed := h.svc.ClearCache(strings.TrimSpace(req.Pattern))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Cache limpo com sucesso",
		"removidos": removed,
	})
}

type clearRateLimitRequest struct {
	IP string `json:"ip"`
}

func (h *Handler) ClearRateLimit(c echo.Context) error {
	var req clearRateLimitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	h.svc.ClearRateLimit(strings.TrimSpace(req.IP))
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "Rate limit limpo com sucesso"})
}

func (h *Handler) SecurityLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "logs": h.svc.SecurityLogs()})
}

func (h *Handler) Backup(c echo.Context) error {
	path, err := h.svc.Backup(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Backup criado com sucesso",
		"path":    path,
	})
}

// Download streams the live database file as an attachment.
func (h *Handler) Download(c echo.Context) error {
	path, err := h.svc.DatabaseFile(c.Request().Context())
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "Arquivo de banco de dados não encontrado")
	}
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, "Baixou backup do banco")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	return c.Attachment(path, "backup-aih-"+h.svc.today()+".db")
}
