package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/touresta/touresta-backend/pkg/jwt"
)

// PrincipalContextKey is the key used to store the authenticated
// principal in Gin context
const PrincipalContextKey = "principal"

// PrincipalContext represents the authenticated caller, either a user or
// an admin
type PrincipalContext struct {
	PrincipalID int64             `json:"principal_id"`
	ExternalID  string            `json:"external_id,omitempty"`
	Email       string            `json:"email"`
	Kind        jwt.PrincipalKind `json:"kind"`
}

// AuthMiddleware creates a middleware that validates JWT access tokens
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Printf("AUTH FAILED: Missing authorization header - Path: %s, IP: %s", c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Printf("AUTH FAILED: Invalid auth format - Path: %s, IP: %s", c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			log.Printf("AUTH FAILED: Empty token - Path: %s, IP: %s", c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Token cannot be empty",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				log.Printf("AUTH FAILED: Token expired - Path: %s, IP: %s, Error: %v", c.Request.URL.Path, c.ClientIP(), err)
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Access token has expired. Please refresh your token.",
					"code":    "TOKEN_EXPIRED",
				})
			} else {
				log.Printf("AUTH FAILED: Invalid token - Path: %s, IP: %s, Error: %v", c.Request.URL.Path, c.ClientIP(), err)
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid_token",
					"message": "Invalid access token",
					"code":    "INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		c.Set(PrincipalContextKey, PrincipalContext{
			PrincipalID: claims.PrincipalID,
			ExternalID:  claims.ExternalID,
			Email:       claims.Email,
			Kind:        claims.Kind,
		})

		c.Next()
	}
}

// RequireKind creates a middleware that restricts a route to one
// principal kind. Admin routes refuse user tokens outright and vice
// versa.
func RequireKind(kind jwt.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := GetPrincipal(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Principal context not found. Auth middleware may not be applied.",
				"code":    "MISSING_PRINCIPAL_CONTEXT",
			})
			c.Abort()
			return
		}

		if principal.Kind != kind {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You don't have permission to access this resource",
				"code":    "INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireUser restricts a route to user tokens
func RequireUser() gin.HandlerFunc {
	return RequireKind(jwt.KindUser)
}

// RequireAdmin restricts a route to admin tokens
func RequireAdmin() gin.HandlerFunc {
	return RequireKind(jwt.KindAdmin)
}

// GetPrincipal retrieves the principal context from Gin context
func GetPrincipal(c *gin.Context) (PrincipalContext, bool) {
	value, exists := c.Get(PrincipalContextKey)
	if !exists {
		return PrincipalContext{}, false
	}

	principal, ok := value.(PrincipalContext)
	if !ok {
		return PrincipalContext{}, false
	}

	return principal, true
}

// MustGetPrincipal retrieves the principal context or panics (use only
// after AuthMiddleware)
func MustGetPrincipal(c *gin.Context) PrincipalContext {
	principal, exists := GetPrincipal(c)
	if !exists {
		panic("principal context not found - ensure AuthMiddleware is applied")
	}
	return principal
}
