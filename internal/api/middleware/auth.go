package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/auth"
	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/response"
)

const ctxSubject = "subject"

// AuthMiddleware creates JWT authentication middleware requiring role
func AuthMiddleware(jwtManager *auth.JWTManager, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !jwtManager.Enabled() {
			response.Forbidden(c, "Admin endpoints are disabled")
			c.Abort()
			return
		}

		// Get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Missing authorization header")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, domain.ErrExpiredToken) {
				response.Unauthorized(c, "Token has expired")
			} else {
				response.Unauthorized(c, "Invalid token")
			}
			c.Abort()
			return
		}

		if err := claims.Require(role); err != nil {
			response.Forbidden(c, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Set(ctxSubject, claims.Subject)
		c.Next()
	}
}

// GetSubject retrieves the token subject from the request context
func GetSubject(c *gin.Context) string {
	return c.GetString(ctxSubject)
}
