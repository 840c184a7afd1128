package admission

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/auth"
	"github.com/vidaplus/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleProfessional)

	admissions := api.Group("/admissions", staff)
	admissions.POST("", h.Admit)
	admissions.GET("", h.List)
	admissions.GET("/:id", h.Get)
	admissions.POST("/:id/discharge", h.Discharge)
	admissions.POST("/:id/records", h.AddRecord)

	api.GET("/patients/:id/admissions", h.ListByPatient, staff)
}

func (h *Handler) Admit(c echo.Context) error {
	var in AdmitInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	adm, err := h.svc.Admit(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, adm)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	adm, err := h.svc.Discharge(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adm)
}

func (h *Handler) AddRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	authorID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	rec, err := h.svc.AddRecord(ctx, id, authorID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
