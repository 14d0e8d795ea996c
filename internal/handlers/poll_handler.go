package handlers

import (
	"net/http"

	"kovan/internal/api/middleware"
	"kovan/internal/api/validator"
	"kovan/internal/services"

	"github.com/labstack/echo/v4"
)

type PollHandler struct {
	polls     *services.Polls
	responses *services.Responses
}

func NewPollHandler(polls *services.Polls, responses *services.Responses) *PollHandler {
	return &PollHandler{polls: polls, responses: responses}
}

func (h *PollHandler) Create(c echo.Context) error {
	var req validator.PollRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	poll, err := h.polls.Create(c.Request().Context(), middleware.GetAuthContext(c), services.CreatePollInput{
		Question:           req.Question,
		GroupID:            req.GroupID,
		Options:            req.Options,
		AllowCustomOptions: req.AllowCustomOptions,
		ClosesAt:           req.ClosesAt,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, poll)
}

func (h *PollHandler) Get(c echo.Context) error {
	poll, err := h.polls.Get(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, poll)
}

func (h *PollHandler) Results(c echo.Context) error {
	results, err := h.polls.Results(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

func (h *PollHandler) Vote(c echo.Context) error {
	var req validator.VoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// the poll's scope must admit the voter before the vote lands
	if _, err := h.polls.Get(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}

	vote, err := h.responses.CastVote(c.Request().Context(), c.Param("id"), middleware.GetUserID(c), req.OptionID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, vote)
}

func (h *PollHandler) AddCustomOption(c echo.Context) error {
	var req validator.CustomOptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if _, err := h.polls.Get(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}

	option, err := h.responses.AddCustomOption(c.Request().Context(), c.Param("id"), middleware.GetUserID(c), req.Text)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, option)
}
