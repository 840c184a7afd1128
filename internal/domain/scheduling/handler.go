package scheduling

import (
	"net/http"
	"time"

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
	professional := auth.RequireRole(auth.RoleProfessional)

	me := api.Group("/professionals/me", professional)
	me.PUT("/weekly-schedule", h.SetWeeklySchedule)
	me.POST("/unavailability", h.AddUnavailability)
	me.GET("/agenda", h.Agenda)

	api.GET("/professionals/:id/free-slots", h.FreeSlots)
	api.GET("/professionals/:id/weekly-schedule", h.GetWeeklySchedule)

	appts := api.Group("/appointments")
	appts.POST("", h.Book)
	appts.GET("", h.ListAppointments)
	appts.GET("/:id", h.GetAppointment)
	appts.POST("/:id/cancel", h.Cancel)
	appts.PUT("/:id/record", h.SaveRecord, professional)
	appts.GET("/:id/record", h.GetRecord)
}

func (h *Handler) actingProfessional(c echo.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("missing user identity")
	}
	prof, err := h.svc.professionals.GetByUserID(c.Request().Context(), userID)
	if err != nil {
		return uuid.Nil, err
	}
	return prof.ID, nil
}

type setScheduleRequest struct {
	Schedule []ScheduleRowInput `json:"schedule" validate:"required,dive"`
}

func (h *Handler) SetWeeklySchedule(c echo.Context) error {
	var req setScheduleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	profID, err := h.actingProfessional(c)
	if err != nil {
		return err
	}
	grid, err := h.svc.SetWeeklySchedule(c.Request().Context(), profID, req.Schedule)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grid)
}

func (h *Handler) GetWeeklySchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	grid, err := h.svc.GetWeeklySchedule(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grid)
}

type addUnavailabilityRequest struct {
	Windows []WindowInput `json:"windows" validate:"required,dive"`
}

func (h *Handler) AddUnavailability(c echo.Context) error {
	var req addUnavailabilityRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	profID, err := h.actingProfessional(c)
	if err != nil {
		return err
	}
	windows, err := h.svc.AddUnavailability(c.Request().Context(), profID, req.Windows)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, windows)
}

func (h *Handler) FreeSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	dateStr := c.QueryParam("date")
	if dateStr == "" {
		return apperr.Validation("date query parameter is required")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return apperr.Validation("date must be in YYYY-MM-DD format")
	}
	slots, err := h.svc.FreeSlots(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"date": dateStr, "slots": slots})
}

func (h *Handler) Agenda(c echo.Context) error {
	fromStr, toStr := c.QueryParam("from"), c.QueryParam("to")
	if fromStr == "" || toStr == "" {
		return apperr.Validation("from and to query parameters are required")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return apperr.Validation("from must be in YYYY-MM-DD format")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return apperr.Validation("to must be in YYYY-MM-DD format")
	}
	profID, err := h.actingProfessional(c)
	if err != nil {
		return err
	}
	agenda, err := h.svc.Agenda(c.Request().Context(), profID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agenda)
}

func (h *Handler) Book(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	appt, err := h.svc.Book(ctx, userID, auth.RoleFromContext(ctx), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(ctx, userID, auth.RoleFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	appt, err := h.svc.GetAppointment(ctx, id, userID, auth.RoleFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	appt, err := h.svc.Cancel(ctx, id, userID, auth.RoleFromContext(ctx), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) SaveRecord(c echo.Context) error {
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
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	rec, err := h.svc.SaveClinicalRecord(ctx, id, userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Unauthorized("missing user identity")
	}
	rec, err := h.svc.GetRecord(ctx, id, userID, auth.RoleFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
