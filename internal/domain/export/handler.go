package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

const (
	mimeCSV     = "text/csv; charset=utf-8"
	mimeParquet = "application/vnd.apache.parquet"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	user := auth.RequireRole(auth.RoleUser)
	api.GET("/export/:formato", h.Full, user)
	api.POST("/export/:formato", h.Full, user)
	api.GET("/aih/:id/movimentacoes/export/:formato", h.History, user)
}

func attachment(c echo.Context, filename string) {
	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	header.Set("Cache-Control", "no-cache")
}

// Full exports the database: everything in JSON, the AIH table in CSV and
// parquet.
func (h *Handler) Full(c echo.Context) error {
	ctx := c.Request().Context()
	format := Format(c.Param("formato"))
	base := "export-aih-" + h.svc.today()

	switch format {
	case FormatJSON:
		d, err := h.svc.Dataset(ctx, auth.UserNameFromContext(ctx))
		if err != nil {
			return apperr.HTTP(err)
		}
		middleware.SetAccessAction(c, "Exportou dados em json")
		attachment(c, base+".json")
		return c.JSON(http.StatusOK, d)
	case FormatCSV, FormatParquet:
		aihs, err := h.svc.AIHs(ctx)
		if err != nil {
			return apperr.HTTP(err)
		}
		var buf bytes.Buffer
		mime := mimeCSV
		if format == FormatCSV {
			err = WriteAIHsCSV(&buf, aihs)
		} else {
			mime = mimeParquet
			err = WriteAIHsParquet(&buf, aihs)
		}
		if err != nil {
			return apperr.HTTP(err)
		}
		middleware.SetAccessAction(c, "Exportou dados em "+string(format))
		attachment(c, base+"."+string(format))
		return c.Blob(http.StatusOK, mime, buf.Bytes())
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Formato não suportado. Use: json, csv ou parquet")
}

// History exports the movement history of one AIH.
func (h *Handler) History(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	format := Format(c.Param("formato"))
	if format != FormatCSV && format != FormatParquet {
		return echo.NewHTTPError(http.StatusBadRequest, `Formato não suportado. Use "csv" ou "parquet"`)
	}

	hist, err := h.svc.History(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	var buf bytes.Buffer
	mime := mimeCSV
	if format == FormatCSV {
		err = WriteHistoryCSV(&buf, hist)
	} else {
		mime = mimeParquet
		err = WriteHistoryParquet(&buf, hist)
	}
	if err != nil {
		return apperr.HTTP(err)
	}
	attachment(c, fmt.Sprintf("historico-movimentacoes-AIH-%s-%s.%s", hist.Number, h.svc.today(), format))
	return c.Blob(http.StatusOK, mime, buf.Bytes())
}
