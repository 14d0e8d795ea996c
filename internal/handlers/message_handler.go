package handlers

import (
	"net/http"
	"strconv"

	"kovan/internal/api/middleware"
	"kovan/internal/api/validator"
	"kovan/internal/services"

	"github.com/labstack/echo/v4"
)

// MessageHandler is the HTTP face of the conversation services; every scope
// decision happens in the service layer.
type MessageHandler struct {
	messages  *services.Messages
	responses *services.Responses
}

func NewMessageHandler(messages *services.Messages, responses *services.Responses) *MessageHandler {
	return &MessageHandler{messages: messages, responses: responses}
}

func (h *MessageHandler) Post(c echo.Context) error {
	var req validator.MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	message, err := h.messages.Post(c.Request().Context(), middleware.GetAuthContext(c), services.PostMessageInput{
		Content:   req.Content,
		GroupID:   req.GroupID,
		ReplyToID: req.ReplyToID,
		TagIDs:    req.TagIDs,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) List(c echo.Context) error {
	groupID := scopeParam(c)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	messages, total, err := h.messages.List(c.Request().Context(), middleware.GetAuthContext(c), groupID, page, limit)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

func (h *MessageHandler) Forward(c echo.Context) error {
	var req validator.ForwardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	forwarded, err := h.messages.Forward(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"), req.GroupID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, forwarded)
}

func (h *MessageHandler) Search(c echo.Context) error {
	hits, err := h.messages.Search(c.Request().Context(), middleware.GetAuthContext(c), c.QueryParam("q"), scopeParam(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, hits)
}

func (h *MessageHandler) Pinned(c echo.Context) error {
	message, err := h.messages.Pinned(c.Request().Context(), middleware.GetAuthContext(c), scopeParam(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) Pin(c echo.Context) error {
	message, err := h.responses.Pin(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) Unpin(c echo.Context) error {
	if err := h.responses.Unpin(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) React(c echo.Context) error {
	var req validator.ReactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	reaction, err := h.responses.AddReaction(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"), req.Emoji)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, reaction)
}

func (h *MessageHandler) Unreact(c echo.Context) error {
	err := h.responses.RemoveReaction(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id"), c.QueryParam("emoji"))
	if err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) Star(c echo.Context) error {
	if err := h.responses.Star(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) Unstar(c echo.Context) error {
	if err := h.responses.Unstar(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	if err := h.responses.MarkRead(c.Request().Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) UnreadTags(c echo.Context) error {
	tags, err := h.messages.UnreadTags(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}

// scopeParam reads the optional groupId query parameter; absent means the
// global channel.
func scopeParam(c echo.Context) *string {
	if groupID := c.QueryParam("groupId"); groupID != "" {
		return &groupID
	}
	return nil
}
