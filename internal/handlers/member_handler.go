package handlers

import (
	"errors"
	"net/http"

	"kovan/internal/api/validator"
	"kovan/internal/events"
	"kovan/internal/models"
	"kovan/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MemberHandler covers user administration: listing, rank assignment and the
// membership approval flow.
type MemberHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberHandler(db *gorm.DB) *MemberHandler {
	return &MemberHandler{db: db, log: logger.New("MemberHandler")}
}

// ListUsers returns all members; ?status=PENDING narrows to one membership state.
func (h *MemberHandler) ListUsers(c echo.Context) error {
	query := h.db.Where("is_deleted = ?", false)

	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidMembershipStatus(models.MembershipStatus(status)) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid membership status"})
		}
		query = query.Where("membership_status = ?", status)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch users"})
	}
	return c.JSON(http.StatusOK, users)
}

func (h *MemberHandler) GetUser(c echo.Context) error {
	var user models.User
	err := h.db.Where("id = ? AND is_deleted = ?", c.Param("id"), false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
	}
	return c.JSON(http.StatusOK, user)
}

// AssignRank sets or clears a user's rank; a nil rutbe makes the user
// rankless, which drops them out of every ordered tier.
func (h *MemberHandler) AssignRank(c echo.Context) error {
	var req validator.AssignRankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if req.Rutbe != nil {
		var rank models.Rank
		if err := h.db.Where("name = ? AND is_deleted = ?", *req.Rutbe, false).First(&rank).Error; err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown rank"})
		}
	}

	var user models.User
	if err := h.db.Where("id = ? AND is_deleted = ?", req.UserID, false).First(&user).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	if err := h.db.Model(&user).Update("rutbe", req.Rutbe).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to assign rank"})
	}

	events.Emit("users.rank_changed", &user)

	return c.JSON(http.StatusOK, map[string]string{"message": "Rank updated"})
}

// ApproveUser flips a pending membership to APPROVED.
func (h *MemberHandler) ApproveUser(c echo.Context) error {
	return h.setMembership(c, models.MembershipApproved, "users.approved")
}

// RejectUser flips a pending membership to REJECTED.
func (h *MemberHandler) RejectUser(c echo.Context) error {
	return h.setMembership(c, models.MembershipRejected, "users.rejected")
}

func (h *MemberHandler) setMembership(c echo.Context, status models.MembershipStatus, event string) error {
	var req validator.ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var user models.User
	err := h.db.Where("id = ? AND is_deleted = ?", req.UserID, false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
	}

	if user.MembershipStatus == status {
		return c.JSON(http.StatusOK, map[string]string{"message": "No change"})
	}

	if err := h.db.Model(&user).Update("membership_status", status).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update membership"})
	}

	events.Emit(event, &user)

	return c.JSON(http.StatusOK, map[string]string{"message": "Membership updated"})
}

// DeleteUser soft-deletes a member and revokes their sessions.
func (h *MemberHandler) DeleteUser(c echo.Context) error {
	id := c.Param("id")

	var user models.User
	if err := h.db.Where("id = ? AND is_deleted = ?", id, false).First(&user).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	return h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("is_deleted", true).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete user"})
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.AuthTransaction{}).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to revoke sessions"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "User deleted successfully"})
	})
}
