package visit

import (
	"net/http"

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
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	g.GET("/visits", h.ListVisits)
	g.GET("/visits/:id", h.GetVisit)
	g.GET("/visits/:id/completion-status", h.CompletionStatus)
	g.GET("/patients/:id/visits", h.ListByPatient)
	g.POST("/visits", h.CreateVisit)
	g.PATCH("/visits/:id", h.UpdateVisit)
	g.POST("/visits/:id/complete", h.CompleteVisit)
	g.POST("/visits/:id/cancel", h.CancelVisit)

	// Reopen carries its own privilege check in the service; the route guard
	// only narrows who can even attempt it.
	reopen := api.Group("", auth.RequireRole("admin", "supervisor"))
	reopen.POST("/visits/:id/reopen", h.ReopenVisit)
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreateVisit(c.Request().Context(), &v, actor); err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	pg := pagination.FromContext(c)

	if raw := c.QueryParam("status"); raw != "" {
		visits, total, err := h.svc.ListVisitsByStatus(c.Request().Context(), Status(raw), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
	}

	visits, total, err := h.svc.ListVisits(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	visits, total, err := h.svc.ListVisitsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch UpdateParams
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	v, err := h.svc.UpdateVisit(c.Request().Context(), id, patch, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CompleteVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	v, err := h.svc.CompleteVisit(c.Request().Context(), id, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CancelVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	v, err := h.svc.CancelVisit(c.Request().Context(), id, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ReopenVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	v, err := h.svc.ReopenVisit(ctx, id, auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CompletionStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.CompletionStatus(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, cs)
}
