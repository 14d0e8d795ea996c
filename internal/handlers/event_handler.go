package handlers

import (
	"net/http"

	"kovan/internal/api/middleware"
	"kovan/internal/api/validator"
	"kovan/internal/models"
	"kovan/internal/services"

	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	events    *services.Events
	responses *services.Responses
}

func NewEventHandler(events *services.Events, responses *services.Responses) *EventHandler {
	return &EventHandler{events: events, responses: responses}
}

func (h *EventHandler) Create(c echo.Context) error {
	var req validator.EventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	event, err := h.events.Create(c.Request().Context(), middleware.GetAuthContext(c), services.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		EventDate:   req.EventDate,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) Get(c echo.Context) error {
	event, err := h.events.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Upcoming(c echo.Context) error {
	events, err := h.events.Upcoming(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// RSVP records the caller's attendance answer; a repeat call replaces it.
func (h *EventHandler) RSVP(c echo.Context) error {
	var req validator.AttendanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	attendance, err := h.responses.SetAttendance(
		c.Request().Context(),
		c.Param("id"),
		middleware.GetUserID(c),
		models.AttendanceStatus(req.Status),
	)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, attendance)
}
