package handler

import (
	"net/http"
	"time"

	"genealogy-service/internal/middleware"
	"genealogy-service/internal/model"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/logger"
	"genealogy-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// GetProfile returns the authenticated user's account
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "profile_access")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, "id = ?", principal.ID); result.Error != nil {
		log.Error("User not found", zap.String("user_id", principal.ID.String()))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// UpdateProfile applies partial updates to the authenticated user's account
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "profile_update")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		FirstName        *string `json:"first_name"`
		LastName         *string `json:"last_name"`
		DateOfBirth      *string `json:"date_of_birth"`
		PrivacyLevel     *string `json:"privacy_level"`
		MarketingConsent *bool   `json:"marketing_consent"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		if *req.FirstName == "" || len(*req.FirstName) > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name must be between 1 and 100 characters"})
		}
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		if *req.LastName == "" || len(*req.LastName) > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "last_name must be between 1 and 100 characters"})
		}
		updates["last_name"] = *req.LastName
	}
	if req.DateOfBirth != nil {
		parsed, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_of_birth must be a valid date"})
		}
		updates["date_of_birth"] = parsed
	}
	if req.PrivacyLevel != nil {
		if !model.ValidPrivacyLevel(*req.PrivacyLevel) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "privacy_level must be private, public, or shared"})
		}
		updates["privacy_level"] = *req.PrivacyLevel
	}
	if req.MarketingConsent != nil {
		updates["marketing_consent"] = *req.MarketingConsent
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, "id = ?", principal.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if result := database.GetDB().Model(&user).Updates(updates); result.Error != nil {
		log.Error("Failed to update profile", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	log.Info("Profile updated", zap.String("user_id", user.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// ChangePassword verifies the current password and replaces the hash
func ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "password_change")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse change-password request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !validPassword(req.NewPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "password must be at least 8 characters with an uppercase letter, a lowercase letter and a number",
		})
	}

	var user model.User
	if result := database.GetDB().First(&user, "id = ?", principal.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change password"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&user).Update("password_hash", string(hashedPassword)); result.Error != nil {
		log.Error("Failed to update password", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change password"})
	}

	log.Info("Password changed", zap.String("user_id", user.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}

// Logout acknowledges a client-side token disposal; tokens are stateless
func Logout(c echo.Context) error {
	prometheus.RecordResourceOperation("user", "logout")
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// DeactivateAccount soft-deactivates the authenticated account. The row is
// kept; the live lookup in the auth middleware rejects its tokens from now
// on.
func DeactivateAccount(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "deactivate")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.User{}).
		Where("id = ?", principal.ID).
		Update("is_active", false)
	if result.Error != nil {
		log.Error("Failed to deactivate account", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate account"})
	}

	log.Info("Account deactivated", zap.String("user_id", principal.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Account deactivated"})
}
