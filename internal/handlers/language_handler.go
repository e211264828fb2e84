package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/touresta/touresta-backend/internal/middleware"
	"github.com/touresta/touresta-backend/internal/services"
)

// LanguageHandler handles language verification HTTP requests
type LanguageHandler struct {
	languageService *services.LanguageService
}

// NewLanguageHandler creates a new language handler
func NewLanguageHandler(languageService *services.LanguageService) *LanguageHandler {
	return &LanguageHandler{languageService: languageService}
}

// ListAvailable handles GET /api/v1/helpers/me/languages/available
func (h *LanguageHandler) ListAvailable(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	languages, err := h.languageService.GetAvailableLanguages(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": languages})
}

// ListMine handles GET /api/v1/helpers/me/languages
func (h *LanguageHandler) ListMine(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	languages, err := h.languageService.GetMyLanguages(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": languages})
}

// TakeTestRequest represents a language test submission
type TakeTestRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// TakeTest handles POST /api/v1/helpers/me/languages/:code/test
func (h *LanguageHandler) TakeTest(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	code := c.Param("code")

	var req TakeTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	result, err := h.languageService.TakeLanguageTest(c.Request.Context(), principal.PrincipalID, code, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Test evaluated",
		"result":  result,
	})
}

// TestHistory handles GET /api/v1/helpers/me/languages/:code/tests
func (h *LanguageHandler) TestHistory(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	code := c.Param("code")

	tests, err := h.languageService.GetTestHistory(principal.PrincipalID, code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tests": tests})
}
