package handler

import (
	"net/http"
	"time"

	"genealogy-service/internal/middleware"
	"genealogy-service/internal/model"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/logger"
	"genealogy-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// loadOwnProfile fetches a DNA profile by path id, restricted to the
// caller's own profiles. DNA data never crosses accounts regardless of
// collaboration grants.
func loadOwnProfile(c echo.Context, userID uuid.UUID) *model.DnaProfile {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil
	}

	var profile model.DnaProfile
	result := database.GetDB().First(&profile, "id = ? AND user_id = ?", profileID, userID)
	if result.Error != nil {
		return nil
	}
	return &profile
}

// ListDnaProfiles lists the caller's DNA profiles
func ListDnaProfiles(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("dna_profile", "list")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var profiles []model.DnaProfile
	result := database.GetDB().
		Where("user_id = ?", principal.ID).
		Order("upload_date DESC").
		Find(&profiles)
	if result.Error != nil {
		log.Error("Failed to list DNA profiles", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list DNA profiles"})
	}

	return c.JSON(http.StatusOK, echo.Map{"dna_profiles": profiles})
}

// CreateDnaProfile registers an uploaded DNA file by its hash. A duplicate
// hash means the raw file was already registered, by anyone.
func CreateDnaProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("dna_profile", "create")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		TestingCompany   string `json:"testing_company"`
		FileHash         string `json:"file_hash"`
		EthnicityVersion string `json:"ethnicity_version"`
		IsPublic         bool   `json:"is_public"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse DNA profile request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.TestingCompany == "" || len(req.TestingCompany) > 50 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "testing_company is required and must be at most 50 characters"})
	}
	if req.FileHash == "" || len(req.FileHash) > 255 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_hash is required and must be at most 255 characters"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.DnaProfile
	if result := database.GetDB().Where("file_hash = ?", req.FileHash).First(&existing); result.Error == nil {
		log.Error("Duplicate DNA file hash", zap.String("file_hash", req.FileHash))
		return c.JSON(http.StatusConflict, echo.Map{"error": "this DNA file has already been uploaded"})
	}

	profile := model.DnaProfile{
		UserID:           principal.ID,
		TestingCompany:   req.TestingCompany,
		FileHash:         req.FileHash,
		ProcessingStatus: "pending",
		EthnicityVersion: req.EthnicityVersion,
		IsPublic:         req.IsPublic,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&profile); result.Error != nil {
		log.Error("Failed to create DNA profile", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create DNA profile"})
	}

	log.Info("DNA profile created",
		zap.String("profile_id", profile.ID.String()),
		zap.String("user_id", principal.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "DNA profile created successfully",
		"dna_profile": profile,
	})
}

// GetDnaProfile returns one of the caller's DNA profiles
func GetDnaProfile(c echo.Context) error {
	prometheus.RecordResourceOperation("dna_profile", "get")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	profile := loadOwnProfile(c, principal.ID)
	if profile == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "DNA profile not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"dna_profile": profile})
}

// DeleteDnaProfile removes a profile with its estimates and matches
func DeleteDnaProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("dna_profile", "delete")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	profile := loadOwnProfile(c, principal.ID)
	if profile == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "DNA profile not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dna_profile_id = ?", profile.ID).Delete(&model.EthnicityEstimate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dna_profile_id = ?", profile.ID).Delete(&model.DnaMatch{}).Error; err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		log.Error("Failed to delete DNA profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete DNA profile"})
	}

	log.Info("DNA profile deleted", zap.String("profile_id", profile.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "DNA profile deleted successfully"})
}

// GetEthnicityEstimates returns the per-region breakdown of a profile
func GetEthnicityEstimates(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("dna_profile", "ethnicity")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	profile := loadOwnProfile(c, principal.ID)
	if profile == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "DNA profile not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var estimates []model.EthnicityEstimate
	result := database.GetDB().
		Where("dna_profile_id = ?", profile.ID).
		Order("percentage DESC").
		Find(&estimates)
	if result.Error != nil {
		log.Error("Failed to list ethnicity estimates", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list ethnicity estimates"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ethnicity_estimates": estimates})
}

// GetDnaMatches returns the matches of a profile, strongest first
func GetDnaMatches(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("dna_profile", "matches")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	profile := loadOwnProfile(c, principal.ID)
	if profile == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "DNA profile not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var matches []model.DnaMatch
	result := database.GetDB().
		Where("dna_profile_id = ?", profile.ID).
		Order("shared_dna DESC").
		Find(&matches)
	if result.Error != nil {
		log.Error("Failed to list DNA matches", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list DNA matches"})
	}

	return c.JSON(http.StatusOK, echo.Map{"dna_matches": matches})
}
