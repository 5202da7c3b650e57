package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "auditor"))
	g.GET("/audit-logs", h.ListLogs)
	g.GET("/audit-logs/resource/:type/:id", h.ListByResource)
	g.GET("/audit-logs/summary", h.GetSummary)

	api.POST("/audit-logs/purge", h.Purge, auth.RequireRole("admin"))
}

func (h *Handler) ListLogs(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := Filter{
		UserID:       c.QueryParam("user_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		f.To = &t
	}

	logs, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByResource(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)

	logs, total, err := h.svc.ListByResource(c.Request().Context(), c.Param("type"), id, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSummary(c echo.Context) error {
	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		to = t
	}

	summary, err := h.svc.Summary(c.Request().Context(), from, to)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) Purge(c echo.Context) error {
	actor := auth.UserIDFromContext(c.Request().Context())
	deleted, err := h.svc.Purge(c.Request().Context(), actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted":        deleted,
		"retention_days": h.svc.RetentionDays(),
	})
}
