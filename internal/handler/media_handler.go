package handler

import (
	"net/http"
	"time"

	"genealogy-service/internal/access"
	"genealogy-service/internal/middleware"
	"genealogy-service/internal/model"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/logger"
	"genealogy-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListPersonMedia lists the media items of a visible person
func ListPersonMedia(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("media", "list")

	principal := middleware.PrincipalFromContext(c)
	person := loadPerson(c, "id")
	if person == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	tree := personTree(person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	if !treeAccess(principal, tree, access.IntentRead) {
		return denyRead(c, "media", "person not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var items []model.MediaItem
	result := database.GetDB().
		Where("person_id = ?", person.ID).
		Order("created_at DESC").
		Find(&items)
	if result.Error != nil {
		log.Error("Failed to list media", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list media items"})
	}

	return c.JSON(http.StatusOK, echo.Map{"media_items": items})
}

// AttachPersonMedia records a media item against a person of a writable
// tree. The service stores metadata and URLs; files live elsewhere.
func AttachPersonMedia(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("media", "attach")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	person := loadPerson(c, "id")
	if person == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	tree := personTree(person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	if !treeAccess(principal, tree, access.IntentWrite) {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "media", "person not found")
	}

	var req struct {
		FileName     string `json:"file_name"`
		OriginalName string `json:"original_name"`
		MimeType     string `json:"mime_type"`
		FileSize     int64  `json:"file_size"`
		FileURL      string `json:"file_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		MediaType    string `json:"media_type"`
		Description  string `json:"description"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse media request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.FileName == "" || req.OriginalName == "" || req.MimeType == "" || req.FileURL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_name, original_name, mime_type and file_url are required"})
	}
	if req.FileSize <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_size must be positive"})
	}
	if !model.ValidMediaType(req.MediaType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "media_type must be photo, document, audio, or video"})
	}

	item := model.MediaItem{
		PersonID:     person.ID,
		UploadedBy:   principal.ID,
		FileName:     req.FileName,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		FileSize:     req.FileSize,
		FileURL:      req.FileURL,
		ThumbnailURL: req.ThumbnailURL,
		MediaType:    req.MediaType,
		Description:  req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&item); result.Error != nil {
		log.Error("Failed to attach media", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to attach media item"})
	}

	log.Info("Media attached",
		zap.String("media_id", item.ID.String()),
		zap.String("person_id", person.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Media item attached successfully",
		"media_item": item,
	})
}

// DeleteMediaItem removes a media record. The uploader and the owner of
// the person's tree can both delete.
func DeleteMediaItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("media", "delete")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media item not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var item model.MediaItem
	if result := database.GetDB().First(&item, "id = ?", mediaID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media item not found"})
	}

	var person model.Person
	if result := database.GetDB().Scopes(model.ActivePersons).
		First(&person, "persons.id = ?", item.PersonID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media item not found"})
	}
	tree := personTree(&person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media item not found"})
	}
	if item.UploadedBy != principal.ID && tree.UserID != principal.ID {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "media", "media item not found")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&item); result.Error != nil {
		log.Error("Failed to delete media", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete media item"})
	}

	log.Info("Media deleted", zap.String("media_id", item.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Media item deleted successfully"})
}
