package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/pkg/utils"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// First try to get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// If not found in header, try query parameter (for WebSocket)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(401, gin.H{"message": "Utilisateur non authentifié"})
			c.Abort()
			return
		}

		token, err := utils.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"message": "Token invalide"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(401, gin.H{"message": "Token invalide"})
			c.Abort()
			return
		}

		// A well-signed token can still lack the claims this API mints
		id, ok := claims["id"].(float64)
		if !ok {
			c.JSON(401, gin.H{"message": "Token invalide"})
			c.Abort()
			return
		}
		email, ok := claims["email"].(string)
		if !ok {
			c.JSON(401, gin.H{"message": "Token invalide"})
			c.Abort()
			return
		}

		roles := models.RoleSet{}
		if raw, ok := claims["roles"].([]interface{}); ok {
			for _, role := range raw {
				if s, ok := role.(string); ok {
					roles = append(roles, s)
				}
			}
		}

		c.Set("userId", uint(id))
		c.Set("email", email)
		c.Set("roles", roles)
		c.Next()
	}
}

// UserRoles returns the role set carried by the caller's token.
func UserRoles(c *gin.Context) models.RoleSet {
	if roles, ok := c.Get("roles"); ok {
		if set, ok := roles.(models.RoleSet); ok {
			return set
		}
	}
	return models.RoleSet{}
}

// RequireRole aborts with 403 unless the token's role set contains role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !UserRoles(c).Has(role) {
			c.JSON(403, gin.H{"message": "Accès interdit"})
			c.Abort()
			return
		}
		c.Next()
	}
}
