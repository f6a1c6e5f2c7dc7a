// utils/auth.go
package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// Generate JWT token
func GenerateToken(secret, userID, salonID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID,
		"salonId": salonID,
		"role":    role,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// Auth middleware
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:6]) == "BEARER" {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		c.Set("userId", claims["sub"])
		c.Set("salonId", claims["salonId"])
		c.Set("role", claims["role"])

		c.Next()
	}
}

// RequireRole rejects requests whose token does not carry role. It must run
// after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, _ := c.Get("role"); got != role {
			RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
