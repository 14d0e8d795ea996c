package handlers

import (
	"net/http"

	"kovan/internal/api/validator"
	"kovan/internal/authz"
	"kovan/internal/models"
	"kovan/internal/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RoleHandler is the administrator surface for ranks and tier groups.
type RoleHandler struct {
	db    *gorm.DB
	ranks *services.Ranks
}

func NewRoleHandler(db *gorm.DB, ranks *services.Ranks) *RoleHandler {
	return &RoleHandler{db: db, ranks: ranks}
}

func (h *RoleHandler) ListRanks(c echo.Context) error {
	var ranks []models.Rank
	err := h.db.Preload("Group").
		Where("is_deleted = ?", false).
		Order("name ASC").
		Find(&ranks).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch ranks"})
	}
	return c.JSON(http.StatusOK, ranks)
}

func (h *RoleHandler) CreateRank(c echo.Context) error {
	input, err := h.bindRank(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	rank, err := h.ranks.CreateRank(c.Request().Context(), *input)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, rank)
}

func (h *RoleHandler) UpdateRank(c echo.Context) error {
	input, err := h.bindRank(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	rank, err := h.ranks.UpdateRank(c.Request().Context(), c.Param("id"), *input)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, rank)
}

func (h *RoleHandler) DeleteRank(c echo.Context) error {
	if err := h.ranks.DeleteRank(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RoleHandler) ListGroups(c echo.Context) error {
	var groups []models.RoleGroup
	err := h.db.Preload("Ranks").
		Where("is_deleted = ?", false).
		Order("\"order\" DESC").
		Find(&groups).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch groups"})
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *RoleHandler) CreateGroup(c echo.Context) error {
	var req validator.RoleGroupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	group, err := h.ranks.CreateGroup(c.Request().Context(), services.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, group)
}

func (h *RoleHandler) DeleteGroup(c echo.Context) error {
	if err := h.ranks.DeleteGroup(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RoleHandler) bindRank(c echo.Context) (*services.RankInput, error) {
	var req validator.RankRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	// decode through the closed matrix so unknown keys are dropped here,
	// not at evaluation time
	matrix, err := authz.ParseMatrix(req.Permissions)
	if err != nil {
		return nil, err
	}

	return &services.RankInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: matrix,
		GroupID:     req.GroupID,
	}, nil
}
