package forms

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "radiologist"))
	read.GET("/submissions/:id", h.GetSubmission)
	read.GET("/visits/:id/submissions", h.ListByVisit)

	review := api.Group("", auth.RequireRole("admin", "physician", "supervisor"))
	review.POST("/submissions/:id/approve", h.Approve)
	review.POST("/submissions/:id/reject", h.Reject)
}

func (h *Handler) GetSubmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, err := h.svc.GetSubmission(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) ListByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	subs, err := h.svc.ListByVisit(c.Request().Context(), visitID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, subs)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	sub, err := h.svc.Approve(c.Request().Context(), id, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	sub, err := h.svc.Reject(c.Request().Context(), id, actor, body.Reason)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, sub)
}
