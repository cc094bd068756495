package middleware

import (
	"strings"

	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	EmployeeIDKey = "employee_id"
)

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Browsers cannot set headers on a WebSocket upgrade, so the token may come as a query param.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			apierr.Write(c, apierr.ErrUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			apierr.Write(c, apierr.ErrBadToken)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(EmployeeIDKey, claims.EmployeeID)

		c.Next()
	}
}
