package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/touresta/touresta-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string     `json:"error"`
	Message    string     `json:"message"`
	Code       string     `json:"code,omitempty"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}

// respondError maps a service error to its HTTP shape. Business rule
// failures carry a domain kind; anything else is an unexpected 500.
func respondError(c *gin.Context, err error) {
	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: domainErr.Message})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: domainErr.Message})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: domainErr.Message})
	case errors.Is(err, services.ErrPreconditionFailed):
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{Error: "precondition_failed", Message: domainErr.Message})
	case errors.Is(err, services.ErrRateLimited):
		if domainErr.RetryAfter != nil {
			seconds := int(time.Until(*domainErr.RetryAfter).Seconds())
			if seconds < 0 {
				seconds = 0
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:      "rate_limit_exceeded",
			Message:    domainErr.Message,
			RetryAfter: domainErr.RetryAfter,
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: domainErr.Message})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: domainErr.Message})
	case errors.Is(err, services.ErrUpstream):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream_failure", Message: domainErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: domainErr.Message})
	}
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return id, true
}
