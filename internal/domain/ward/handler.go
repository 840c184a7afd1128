package ward

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
	admin := auth.RequireRole(auth.RoleAdmin)
	staff := auth.RequireRole(auth.RoleProfessional)

	rooms := api.Group("/rooms")
	rooms.POST("", h.CreateRoom, admin)
	rooms.GET("", h.ListRooms, staff)
	rooms.GET("/:id", h.GetRoom, staff)
	rooms.GET("/:id/beds", h.ListRoomBeds, staff)
	rooms.PUT("/:id", h.UpdateRoom, admin)
	rooms.DELETE("/:id", h.DeleteRoom, admin)

	beds := api.Group("/beds")
	beds.GET("/overview", h.BedOverview, staff)
	beds.POST("", h.CreateBed, admin)
	beds.GET("/:id", h.GetBed, staff)
	beds.PUT("/:id/status", h.UpdateBedStatus, admin)
	beds.DELETE("/:id", h.DeleteBed, admin)
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var in RoomInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	rm, err := h.svc.CreateRoom(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) GetRoom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	rm, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) ListRooms(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRooms(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListRoomBeds(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	beds, err := h.svc.ListBedsByRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) UpdateRoom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in RoomInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	rm, err := h.svc.UpdateRoom(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) DeleteRoom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeleteRoom(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateBed(c echo.Context) error {
	var in BedInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	b, err := h.svc.CreateBed(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpdateBedStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in BedStatusInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	b, err := h.svc.UpdateBedStatus(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BedOverview(c echo.Context) error {
	items, err := h.svc.BedOverview(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
