package middleware

import (
	"errors"
	"strings"

	"ctn_registry/internal/auth"
	"ctn_registry/internal/authz"
	"ctn_registry/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthRequired is a middleware that validates the JWT and stores the actor
// identity in the request context
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing authorization header"))
			c.Abort()
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httpx.FailErr(c, httpx.ErrUnauthorized("invalid authorization header format"))
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Parse and validate token
		claims, err := auth.ParseToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				httpx.FailErr(c, httpx.ErrTokenExpired("token expired"))
			} else {
				httpx.FailErr(c, httpx.ErrInvalidToken("invalid token"))
			}
			c.Abort()
			return
		}

		// Set actor info in context
		c.Set("uid", claims.UID)
		c.Set("email", claims.Email)
		c.Set("roles", claims.Roles)

		c.Next()
	}
}

// Actor reconstructs the authenticated actor from the gin context
func Actor(c *gin.Context) authz.Actor {
	actor := authz.Actor{}
	if email, ok := c.Get("email"); ok {
		actor.Email, _ = email.(string)
	}
	if roles, ok := c.Get("roles"); ok {
		actor.Roles, _ = roles.([]string)
	}
	return actor
}
