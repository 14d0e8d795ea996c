package utils

import (
	"encoding/json"
	"os"
	"time"

	"kovan/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	UserID           string          `json:"user_id"`
	Email            string          `json:"email"`
	Rutbe            *string         `json:"rutbe,omitempty"`
	Permissions      json.RawMessage `json:"permissions,omitempty"`
	MembershipStatus string          `json:"membership_status"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	jwt.RegisteredClaims
}

// GenerateJWT signs an access token carrying the user's rank and the raw
// permission matrix of that rank.
func GenerateJWT(user models.User, permissions json.RawMessage) (string, error) {
	claims := Claims{
		UserID:           user.ID,
		Email:            user.Email,
		Rutbe:            user.Rutbe,
		Permissions:      permissions,
		MembershipStatus: string(user.MembershipStatus),
		TwoFactorEnabled: user.TwoFactorEnabled,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ParseJWT parses and validates a JWT token
func ParseJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

// GenerateRefreshToken generates a refresh token for a user
func GenerateRefreshToken(user models.User) (string, error) {
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * 7 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ParseRefreshToken parses and validates a refresh token
func ParseRefreshToken(tokenString string) (*Claims, error) {
	return ParseJWT(tokenString)
}
