package deletion

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/middleware"
	"github.com/aihaudit/aih/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the delete endpoints for operators, gated by a
// fresh password check, and the log listing for administrators.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/admin")
	admin.DELETE("/deletar-movimentacao", h.DeleteMovement, auth.RequireRole(auth.RoleUser))
	admin.DELETE("/deletar-aih", h.DeleteAIH, auth.RequireRole(auth.RoleUser))
	admin.GET("/logs-exclusao", h.ListLogs, auth.RequireAdmin())
}

func origin(c echo.Context) Origin {
	ua := c.Request().UserAgent()
	if ua == "" {
		ua = "Unknown"
	}
	return Origin{IP: c.RealIP(), UserAgent: ua}
}

func (h *Handler) DeleteMovement(c echo.Context) error {
	var in MovementRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	ctx := c.Request().Context()
	res, err := h.svc.DeleteMovement(ctx, auth.UserIDFromContext(ctx), origin(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, fmt.Sprintf("Deletou movimentação ID %d da AIH %s", res.ID, res.AIH))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":               true,
		"message":               "Movimentação deletada com sucesso",
		"movimentacao_deletada": res,
	})
}

func (h *Handler) DeleteAIH(c echo.Context) error {
	var in AIHRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	ctx := c.Request().Context()
	res, err := h.svc.DeleteAIH(ctx, auth.UserIDFromContext(ctx), origin(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, "Deletou AIH "+res.Number)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "AIH deletada completamente com sucesso",
		"aih_deletada": res,
	})
}

func (h *Handler) ListLogs(c echo.Context) error {
	p := pagination.FromContext(c)
	logs, total, err := h.svc.ListLogs(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, p))
}
