package identity

import (
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

// RegisterRoutes mounts the login endpoints, which the token middleware
// lets through, plus account management for administrators and password
// re-validation for operators.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/login", h.Login)
	api.POST("/validar-senha", h.ValidatePassword, auth.RequireRole(auth.RoleUser))

	admin := api.Group("/admin")
	admin.POST("/login", h.AdminLogin)
	admin.GET("/usuarios", h.ListUsers, auth.RequireAdmin())
	admin.POST("/usuarios", h.CreateUser, auth.RequireAdmin())
	admin.DELETE("/usuarios/:id", h.DeleteUser, auth.RequireAdmin())
	admin.POST("/alterar-senha", h.ChangeAdminPassword, auth.RequireAdmin())
}

func bindError() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return bindError()
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	res, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	middleware.SetAccessUser(c, res.User.ID)
	middleware.SetAccessAction(c, "Login")
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminLogin(c echo.Context) error {
	var in AdminLoginInput
	if err := c.Bind(&in); err != nil {
		return bindError()
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	res, err := h.svc.AdminLogin(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"usuarios": users})
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in UserInput
	if err := c.Bind(&in); err != nil {
		return bindError()
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(err)
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "usuario": u})
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) ChangeAdminPassword(c echo.Context) error {
	var in PasswordChange
	if err := c.Bind(&in); err != nil {
		return bindError()
	}
	ctx := c.Request().Context()
	if err := h.svc.ChangeAdminPassword(ctx, auth.UserIDFromContext(ctx), in); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) ValidatePassword(c echo.Context) error {
	var in PasswordCheck
	if err := c.Bind(&in); err != nil {
		return bindError()
	}
	ctx := c.Request().Context()
	if err := h.svc.ValidatePassword(ctx, auth.UserIDFromContext(ctx), in); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
