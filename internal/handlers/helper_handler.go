package handlers

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/touresta/touresta-backend/internal/middleware"
	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/internal/services"
)

const birthDateLayout = "2006-01-02"

// HelperHandler handles helper onboarding HTTP requests
type HelperHandler struct {
	onboardingService *services.OnboardingService
	gateService       *services.GateService
}

// NewHelperHandler creates a new helper handler
func NewHelperHandler(onboardingService *services.OnboardingService, gateService *services.GateService) *HelperHandler {
	return &HelperHandler{
		onboardingService: onboardingService,
		gateService:       gateService,
	}
}

// optionalFile returns the named multipart file, or nil when the field
// was not sent
func optionalFile(c *gin.Context, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}

// RegisterHelperRequest represents the request to open an application
type RegisterHelperRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
	BirthDate string `json:"birth_date" binding:"required"` // YYYY-MM-DD
}

// Register handles POST /api/v1/helpers
func (h *HelperHandler) Register(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	var req RegisterHelperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "birth_date must be in YYYY-MM-DD format",
		})
		return
	}

	helper, err := h.onboardingService.RegisterHelper(principal.PrincipalID, services.RegisterHelperRequest{
		FullName:  req.FullName,
		Gender:    models.Gender(req.Gender),
		BirthDate: birthDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Helper application created",
		"helper":  helper,
	})
}

// GetProfile handles GET /api/v1/helpers/me
func (h *HelperHandler) GetProfile(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	profile, err := h.onboardingService.GetProfile(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/helpers/me/profile. The request is
// multipart: text fields are optional partial updates, file fields
// replace the stored documents.
func (h *HelperHandler) UpdateProfile(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	req := services.UpdateProfileRequest{
		ProfileImage:   optionalFile(c, "profile_image"),
		NationalID:     optionalFile(c, "national_id"),
		CriminalRecord: optionalFile(c, "criminal_record"),
	}

	if fullName := c.PostForm("full_name"); fullName != "" {
		req.FullName = &fullName
	}
	if genderStr := c.PostForm("gender"); genderStr != "" {
		gender := models.Gender(genderStr)
		req.Gender = &gender
	}
	if birthDateStr := c.PostForm("birth_date"); birthDateStr != "" {
		birthDate, err := time.Parse(birthDateLayout, birthDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "birth_date must be in YYYY-MM-DD format",
			})
			return
		}
		req.BirthDate = &birthDate
	}

	helper, err := h.onboardingService.UpdateProfile(c.Request.Context(), principal.PrincipalID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
		"helper":  helper,
	})
}

// GetStatus handles GET /api/v1/helpers/me/status
func (h *HelperHandler) GetStatus(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	snapshot, err := h.onboardingService.GetStatus(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetEligibility handles GET /api/v1/helpers/me/eligibility. It returns
// every failing condition, unlike the work gate which stops at the first.
func (h *HelperHandler) GetEligibility(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	result, err := h.gateService.Check(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadDrugTest handles POST /api/v1/helpers/me/drug-tests
func (h *HelperHandler) UploadDrugTest(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "A drug test file is required",
		})
		return
	}

	test, err := h.onboardingService.UploadDrugTest(c.Request.Context(), principal.PrincipalID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Drug test uploaded",
		"drug_test": test,
	})
}

// GetDrugTestHistory handles GET /api/v1/helpers/me/drug-tests
func (h *HelperHandler) GetDrugTestHistory(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	tests, err := h.onboardingService.GetDrugTestHistory(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drug_tests": tests})
}

// SaveCar handles PUT /api/v1/helpers/me/car. The request is multipart:
// car fields plus the two license documents, both required when the car
// is first registered.
func (h *HelperHandler) SaveCar(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	req := services.CarRequest{
		Brand:        c.PostForm("brand"),
		Model:        c.PostForm("model"),
		Color:        models.CarColor(c.PostForm("color")),
		LicensePlate: c.PostForm("license_plate"),
		EnergyType:   models.CarEnergyType(c.PostForm("energy_type")),
		Type:         models.CarType(c.PostForm("type")),
	}

	carLicense := optionalFile(c, "car_license")
	personalLicense := optionalFile(c, "personal_license")

	car, err := h.onboardingService.AddOrUpdateCar(c.Request.Context(), principal.PrincipalID, req, carLicense, personalLicense)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Car saved",
		"car":     car,
	})
}

// GetCar handles GET /api/v1/helpers/me/car
func (h *HelperHandler) GetCar(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	car, err := h.onboardingService.GetCar(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}
	if car == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "No car registered",
		})
		return
	}

	c.JSON(http.StatusOK, car)
}

// RemoveCar handles DELETE /api/v1/helpers/me/car
func (h *HelperHandler) RemoveCar(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	if err := h.onboardingService.RemoveCar(c.Request.Context(), principal.PrincipalID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Car removed"})
}

// AddCertificate handles POST /api/v1/helpers/me/certificates
func (h *HelperHandler) AddCertificate(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "A certificate file is required",
		})
		return
	}

	cert, err := h.onboardingService.AddCertificate(
		c.Request.Context(),
		principal.PrincipalID,
		c.PostForm("name"),
		models.CertificateType(c.PostForm("type")),
		file,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Certificate uploaded",
		"certificate": cert,
	})
}

// ListCertificates handles GET /api/v1/helpers/me/certificates
func (h *HelperHandler) ListCertificates(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	certs, err := h.onboardingService.ListCertificates(principal.PrincipalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

// RemoveCertificate handles DELETE /api/v1/helpers/me/certificates/:id
func (h *HelperHandler) RemoveCertificate(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	certID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.onboardingService.RemoveCertificate(c.Request.Context(), principal.PrincipalID, certID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Certificate removed"})
}

// UploadProfileImage handles POST /api/v1/users/me/profile-image
func (h *HelperHandler) UploadProfileImage(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "An image file is required",
		})
		return
	}

	url, err := h.onboardingService.UploadUserProfileImage(c.Request.Context(), principal.PrincipalID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Profile image updated",
		"profile_image_url": url,
	})
}
