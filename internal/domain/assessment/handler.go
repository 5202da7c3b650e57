package assessment

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
	read.GET("/nursing-assessments/:id", h.GetNursing)
	read.GET("/visits/:id/nursing-assessment", h.GetNursingByVisit)
	read.GET("/radiology-assessments/:id", h.GetRadiology)
	read.GET("/visits/:id/radiology-assessment", h.GetRadiologyByVisit)

	nursing := api.Group("", auth.RequireRole("admin", "nurse"))
	nursing.POST("/visits/:id/nursing-assessment", h.CreateNursing)
	nursing.PATCH("/nursing-assessments/:id", h.UpdateNursing)

	radiology := api.Group("", auth.RequireRole("admin", "radiologist"))
	radiology.POST("/visits/:id/radiology-assessment", h.CreateRadiology)
	radiology.PATCH("/radiology-assessments/:id", h.UpdateRadiology)
}

func (h *Handler) CreateNursing(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a NursingAssessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreateNursing(c.Request().Context(), visitID, &a, actor); err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetNursing(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetNursing(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, nursingView(a))
}

func (h *Handler) GetNursingByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetNursingByVisit(c.Request().Context(), visitID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, nursingView(a))
}

func (h *Handler) UpdateNursing(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch NursingPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.UpdateNursing(c.Request().Context(), id, patch, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, nursingView(a))
}

func (h *Handler) CreateRadiology(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a RadiologyAssessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreateRadiology(c.Request().Context(), visitID, &a, actor); err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetRadiology(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetRadiology(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, radiologyView(a))
}

func (h *Handler) GetRadiologyByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetRadiologyByVisit(c.Request().Context(), visitID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, radiologyView(a))
}

func (h *Handler) UpdateRadiology(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch RadiologyPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.UpdateRadiology(c.Request().Context(), id, patch, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToPayload(err))
	}
	return c.JSON(http.StatusOK, radiologyView(a))
}

// nursingView decorates the record with the derived clinical properties.
func nursingView(a *NursingAssessment) map[string]interface{} {
	return map[string]interface{}{
		"assessment":      a,
		"blood_pressure":  a.BloodPressureString(),
		"critical_vitals": a.IsCriticalVitals(),
	}
}

func radiologyView(a *RadiologyAssessment) map[string]interface{} {
	return map[string]interface{}{
		"assessment":       a,
		"has_diagnosis":    a.HasDiagnosis(),
		"findings_summary": a.FindingsSummary(),
	}
}
