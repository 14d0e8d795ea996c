package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"kovan/internal/api/validator"
	"kovan/internal/events"
	"kovan/internal/models"
	"kovan/internal/utils"
	"kovan/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db, log: logger.New("AuthHandler")}
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyResetCodeRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"newPassword" validate:"required,min=8"`
}

// Register creates a user in PENDING membership state. An unexpired invite for
// the email grants the invited rank and immediate approval.
func (h *AuthHandler) Register(c echo.Context) error {
	var req validator.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	user := models.User{
		Email:            req.Email,
		Password:         string(hashedPassword),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		MembershipStatus: models.MembershipPending,
	}

	tx := h.db.Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start transaction"})
	}

	var invite models.MemberInvite
	err = tx.Where("email = ? AND status = ? AND expires_at > ?",
		req.Email, models.InviteStatusPending, time.Now()).First(&invite).Error
	if err == nil {
		invite.Status = models.InviteStatusAccepted
		if err := tx.Save(&invite).Error; err != nil {
			tx.Rollback()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to accept invite"})
		}
		user.Rutbe = &invite.Rutbe
		user.MembershipStatus = models.MembershipApproved
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email already exists"})
	}

	if err := tx.Commit().Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to commit transaction"})
	}

	events.Emit("users.created", &user)

	return c.JSON(http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login authenticates credentials and issues a token pair. The access token
// carries the permission matrix of the user's rank; a rankless user travels
// with an empty matrix.
func (h *AuthHandler) Login(c echo.Context) error {
	var req validator.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_deleted = ?", req.Email, false).First(&user).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	token, err := utils.GenerateJWT(user, h.permissionsOf(user.Rutbe))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}
	refreshToken, err := utils.GenerateRefreshToken(user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}

	transaction := &models.AuthTransaction{
		UserID:    user.ID,
		Token:     token,
		Refresh:   refreshToken,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		ExpiresAt: time.Now().Add(24 * 7 * time.Hour),
	}
	if err := h.db.Create(transaction).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auth transaction"})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token, "refreshToken": refreshToken})
}

// Logout revokes the auth transaction behind the presented token.
func (h *AuthHandler) Logout(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	result := h.db.Where("token = ?", tokenString).Delete(&models.AuthTransaction{})
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to revoke session"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// RefreshToken issues a new access token against a valid refresh token.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req validator.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid input"})
	}

	if _, err := utils.ValidateRefreshToken(req.RefreshToken, os.Getenv("JWT_SECRET")); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}

	var transaction models.AuthTransaction
	if err := h.db.Where("refresh = ? AND expires_at > ?", req.RefreshToken, time.Now()).
		First(&transaction).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}

	var user models.User
	if err := h.db.Where("id = ?", transaction.UserID).First(&user).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
	}

	accessToken, err := utils.GenerateJWT(user, h.permissionsOf(user.Rutbe))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate access token"})
	}

	transaction.Token = accessToken
	if err := h.db.Save(&transaction).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save access token"})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": accessToken})
}

// GetMe returns the current user with their rank resolved.
func (h *AuthHandler) GetMe(c echo.Context) error {
	userID := c.Get("userID").(string)

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	response := map[string]interface{}{"user": user}
	if user.Rutbe != nil {
		var rank models.Rank
		if err := h.db.Preload("Group").
			Where("name = ? AND is_deleted = ?", *user.Rutbe, false).
			First(&rank).Error; err == nil {
			response["rank"] = rank
		}
	}
	return c.JSON(http.StatusOK, response)
}

// RequestPasswordReset stores a short-lived reset code and hands it to the
// notification pipeline. The response never reveals whether the email exists.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	neutral := map[string]string{"message": "If the email exists, a reset code will be sent"}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.JSON(http.StatusOK, neutral)
	}

	code, err := generateResetCode(10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate reset code"})
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := h.db.Create(&reset).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create reset code"})
	}

	reset.User = &user
	events.Emit("password.reset", &reset)

	return c.JSON(http.StatusOK, neutral)
}

// VerifyResetCode consumes a reset code and sets the new password.
func (h *AuthHandler) VerifyResetCode(c echo.Context) error {
	var req VerifyResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var reset models.PasswordReset
	if err := h.db.Where("code = ? AND used = ? AND expires_at > ?",
		req.Code, false, time.Now()).First(&reset).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired reset code"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	var user models.User
	if err := h.db.Where("id = ?", reset.UserID).First(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get user"})
	}

	h.db.Model(&user).Update("password", string(hashedPassword))
	h.db.Model(&reset).Update("used", true)

	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// InviteUser creates a rank-carrying invitation for a new member.
func (h *AuthHandler) InviteUser(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required,min=2"`
		Rutbe string `json:"rutbe" validate:"required,min=2"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// the invited rank must exist
	var rank models.Rank
	if err := h.db.Where("name = ? AND is_deleted = ?", req.Rutbe, false).First(&rank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown rank"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to look up rank"})
	}

	code, err := utils.GenerateRandomString(32)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate invite code"})
	}

	invite := models.MemberInvite{
		Email:     req.Email,
		Name:      req.Name,
		InviterID: userID,
		Rutbe:     rank.Name,
		Code:      code,
		Status:    models.InviteStatusPending,
		ExpiresAt: time.Now().Add(24 * 7 * time.Hour),
	}
	if err := h.db.Create(&invite).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create invitation"})
	}

	events.Emit("invites.created", &invite)

	return c.JSON(http.StatusCreated, map[string]string{"message": "Invitation sent successfully"})
}

// DeleteInvite removes a pending invitation created by the requester.
func (h *AuthHandler) DeleteInvite(c echo.Context) error {
	userID := c.Get("userID").(string)
	inviteID := c.Param("id")

	var invite models.MemberInvite
	if err := h.db.Where("id = ? AND inviter_id = ?", inviteID, userID).First(&invite).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invitation not found"})
	}

	if err := h.db.Delete(&invite).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete invitation"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Invitation deleted successfully"})
}

// permissionsOf loads the raw matrix JSON of a rank for embedding in tokens.
func (h *AuthHandler) permissionsOf(rutbe *string) json.RawMessage {
	if rutbe == nil || *rutbe == "" {
		return nil
	}
	var rank models.Rank
	if err := h.db.Where("name = ? AND is_deleted = ?", *rutbe, false).First(&rank).Error; err != nil {
		return nil
	}
	return json.RawMessage(rank.Permissions)
}

// generateResetCode generates a cryptographically secure random code
// without special characters, using crypto/rand
func generateResetCode(length int) (string, error) {
	buffer := make([]byte, length*2)
	_, err := rand.Read(buffer)
	if err != nil {
		return "", err
	}

	encoded := base64.StdEncoding.EncodeToString(buffer)

	result := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, encoded)

	if len(result) > length {
		result = result[:length]
	}

	return result, nil
}
