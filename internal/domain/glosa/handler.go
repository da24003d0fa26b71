package glosa

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleUser))
	g.GET("/aih/:id/glosas", h.List)
	g.POST("/aih/:id/glosas", h.Create)
	g.DELETE("/glosas/:id", h.Deactivate)

	g.GET("/tipos-glosa", h.ListTypes)
	g.POST("/tipos-glosa", h.CreateType)
	g.DELETE("/tipos-glosa/:id", h.DeleteType)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	glosas, err := h.svc.ListActive(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"glosas": glosas})
}

func (h *Handler) Create(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	g, err := h.svc.Create(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, fmt.Sprintf("Adicionou glosa na AIH ID %d: %s - %s", id, g.Line, g.Type))
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": g.ID})
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, fmt.Sprintf("Removeu glosa ID %d", id))
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) ListTypes(c echo.Context) error {
	tipos, err := h.svc.ListTypes(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tipos": tipos})
}

func (h *Handler) CreateType(c echo.Context) error {
	var in TypeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	t, err := h.svc.CreateType(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": t.ID})
}

func (h *Handler) DeleteType(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteType(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
