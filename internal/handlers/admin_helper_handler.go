package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/touresta/touresta-backend/internal/middleware"
	"github.com/touresta/touresta-backend/internal/services"
	"github.com/touresta/touresta-backend/internal/utils"
)

// AdminHelperHandler handles the admin review HTTP surface
type AdminHelperHandler struct {
	reviewService  *services.ReviewService
	auditService   *services.AuditService
	cleanupService *services.CleanupService
}

// NewAdminHelperHandler creates a new admin helper handler
func NewAdminHelperHandler(
	reviewService *services.ReviewService,
	auditService *services.AuditService,
	cleanupService *services.CleanupService,
) *AdminHelperHandler {
	return &AdminHelperHandler{
		reviewService:  reviewService,
		auditService:   auditService,
		cleanupService: cleanupService,
	}
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}

// PendingQueue handles GET /api/v1/admin/helpers/pending
func (h *AdminHelperHandler) PendingQueue(c *gin.Context) {
	queue, err := h.reviewService.GetPendingQueue()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"helpers": queue,
		"count":   len(queue),
	})
}

// GetForReview handles GET /api/v1/admin/helpers/:id
func (h *AdminHelperHandler) GetForReview(c *gin.Context) {
	helperID, ok := idParam(c, "id")
	if !ok {
		return
	}

	pkg, err := h.reviewService.GetForReview(helperID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// Approve handles POST /api/v1/admin/helpers/:id/approve
func (h *AdminHelperHandler) Approve(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	helperID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.Approve(principal.PrincipalID, helperID, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Helper approved"})
}

// ReviewDecisionRequest carries the reason for a negative review outcome
type ReviewDecisionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject handles POST /api/v1/admin/helpers/:id/reject
func (h *AdminHelperHandler) Reject(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	helperID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "A rejection reason is required",
		})
		return
	}

	if err := h.reviewService.Reject(principal.PrincipalID, helperID, req.Reason, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Helper rejected"})
}

// RequestChanges handles POST /api/v1/admin/helpers/:id/request-changes
func (h *AdminHelperHandler) RequestChanges(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	helperID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "A reason describing the required changes is required",
		})
		return
	}

	if err := h.reviewService.RequestChanges(principal.PrincipalID, helperID, req.Reason, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Changes requested"})
}

// AuditTrail handles GET /api/v1/admin/helpers/:id/audit
func (h *AdminHelperHandler) AuditTrail(c *gin.Context) {
	helperID, ok := idParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.auditService.GetHelperTrail(helperID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// TriggerCleanup handles POST /api/v1/admin/maintenance/cleanup
func (h *AdminHelperHandler) TriggerCleanup(c *gin.Context) {
	report, err := h.cleanupService.RunSweepNow()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cleanup sweep completed",
		"report":  report,
	})
}

// CleanupStatus handles GET /api/v1/admin/maintenance/cleanup
func (h *AdminHelperHandler) CleanupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cleanupService.GetJobStatus())
}
