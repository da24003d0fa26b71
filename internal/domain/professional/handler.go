package professional

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
	user := auth.RequireRole(auth.RoleUser)
	api.GET("/profissionais", h.List, user)
	api.POST("/profissionais", h.Create, user)
	api.DELETE("/profissionais/:id", h.Delete, user)
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"profissionais": list})
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, "Cadastrou profissional "+p.Name)
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": p.ID})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessAction(c, fmt.Sprintf("Removeu profissional ID %d", id))
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
