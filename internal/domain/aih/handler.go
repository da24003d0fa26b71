package aih

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

// RegisterRoutes mounts the AIH routes on api. GET /aih/:id looks the AIH up
// by its number; every other :id is the row id.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleUser))
	g.GET("/dashboard", h.Dashboard)
	g.POST("/aih", h.Register)
	g.GET("/aih/:id", h.Get)
	g.GET("/aih/:id/proxima-movimentacao", h.NextMovement)
	g.GET("/aih/:id/ultima-movimentacao", h.LastProfessionals)
	g.POST("/aih/:id/movimentacao", h.RecordMovement)
	g.POST("/pesquisar", h.Search)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	return id, nil
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.svc.Dashboard(c.Request().Context(), c.QueryParam("competencia"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	ctx := c.Request().Context()
	res, err := h.svc.Register(ctx, auth.UserIDFromContext(ctx), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, "Cadastrou AIH "+res.Number)
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) NextMovement(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	next, err := h.svc.NextMovement(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, next)
}

func (h *Handler) LastProfessionals(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.LastProfessionals(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if p == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":      true,
			"movimentacao": nil,
			"message":      "Nenhuma movimentação anterior com profissionais encontrada",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "movimentacao": p})
}

func (h *Handler) RecordMovement(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in MovementInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	ctx := c.Request().Context()
	m, err := h.svc.RecordMovement(ctx, id, auth.UserIDFromContext(ctx), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, fmt.Sprintf("Registrou movimentação %s na AIH ID %d", m.Type, id))
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": m.ID})
}

type searchRequest struct {
	Filters SearchFilters `json:"filtros"`
}

func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	results, err := h.svc.Search(c.Request().Context(), req.Filters)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"resultados": results})
}
