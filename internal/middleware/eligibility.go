package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/touresta/touresta-backend/internal/services"
	"github.com/touresta/touresta-backend/pkg/jwt"
)

// EligibilityEnforcer decides whether the user behind a request is an
// eligible helper. The services package provides the production
// implementation.
type EligibilityEnforcer interface {
	Enforce(userID int64) error
}

// RequireEligibleHelper guards routes that serve tourist-facing helper
// work. It must run after AuthMiddleware. Ineligible helpers get a 403
// naming the first failing condition; the enforcer may persist a
// deactivation before rejecting.
func RequireEligibleHelper(gate EligibilityEnforcer) gin.HandlerFunc {
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

		// Admin principals are not helpers; they pass through untouched.
		if principal.Kind == jwt.KindAdmin {
			c.Next()
			return
		}

		if err := gate.Enforce(principal.PrincipalID); err != nil {
			if errors.Is(err, services.ErrForbidden) {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": err.Error(),
					"code":    "HELPER_NOT_ELIGIBLE",
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "Failed to check helper eligibility",
					"code":    "ELIGIBILITY_CHECK_FAILED",
				})
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
