package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"kovan/internal/authz"
	"kovan/internal/db"
	"kovan/internal/models"
	"kovan/internal/utils"
	"kovan/internal/utils/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

var log = logger.New("auth_middleware")

const authContextKey = "authContext"

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			return m.validateJWT(c, tokenParts[1], next)
		}
	}
}

func (m *AuthMiddleware) validateJWT(c echo.Context, tokenString string, next echo.HandlerFunc) error {
	claims := &utils.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		log.Error("Error parsing JWT token", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
	}

	// The token must belong to a live auth transaction; logout revokes it
	transaction := &models.AuthTransaction{}
	if err := db.DB.Where("user_id = ? AND token = ?",
		claims.UserID, tokenString).First(transaction).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Auth transaction not found")
	}

	user := &models.User{}
	if err := db.DB.Where("id = ? AND is_deleted = ?", claims.UserID, false).First(user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}

	// The permission matrix travels in the token; a malformed one denies
	// everything rather than erroring the request
	matrix, err := authz.ParseMatrix(claims.Permissions)
	if err != nil {
		matrix = nil
	}

	auth := authz.AuthContext{
		UserID:   user.ID,
		Rutbe:    user.Rutbe,
		Matrix:   matrix,
		Approved: user.IsApproved(),
	}

	c.Set(authContextKey, auth)
	c.Set("userID", user.ID)
	c.Set("email", user.Email)

	return next(c)
}

// GetAuthContext returns the identity snapshot built by the middleware; the
// zero value means unauthenticated.
func GetAuthContext(c echo.Context) authz.AuthContext {
	if auth, ok := c.Get(authContextKey).(authz.AuthContext); ok {
		return auth
	}
	return authz.AuthContext{}
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}

func GetEmail(c echo.Context) string {
	if email, ok := c.Get("email").(string); ok {
		return email
	}
	return ""
}
