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
	"gorm.io/gorm"
)

// loadTree fetches a non-deleted tree by its path id. Returns nil without
// writing a response when the id is malformed or the tree is absent; the
// caller decides the denial shape.
func loadTree(c echo.Context, param string) *model.FamilyTree {
	treeID, err := uuid.Parse(c.Param(param))
	if err != nil {
		return nil
	}

	var tree model.FamilyTree
	result := database.GetDB().Scopes(model.ActiveTrees).First(&tree, "family_trees.id = ?", treeID)
	if result.Error != nil {
		return nil
	}
	return &tree
}

// ListTrees returns the caller's own trees, newest first
func ListTrees(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "list")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var trees []model.FamilyTree
	result := database.GetDB().Scopes(model.ActiveTrees).
		Where("user_id = ?", principal.ID).
		Order("updated_at DESC").
		Find(&trees)
	if result.Error != nil {
		log.Error("Failed to list trees", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list family trees"})
	}

	return c.JSON(http.StatusOK, echo.Map{"family_trees": trees})
}

// CreateTree creates a family tree owned by the caller
func CreateTree(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "create")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		PrivacyLevel string `json:"privacy_level"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tree request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || len(req.Name) > 255 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required and must be at most 255 characters"})
	}
	if req.PrivacyLevel == "" {
		req.PrivacyLevel = model.PrivacyPrivate
	}
	if !model.ValidPrivacyLevel(req.PrivacyLevel) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "privacy_level must be private, public, or shared"})
	}

	tree := model.FamilyTree{
		UserID:       principal.ID,
		Name:         req.Name,
		Description:  req.Description,
		PrivacyLevel: req.PrivacyLevel,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&tree); result.Error != nil {
		log.Error("Failed to create tree", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create family tree"})
	}

	log.Info("Family tree created",
		zap.String("tree_id", tree.ID.String()),
		zap.String("user_id", principal.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Family tree created successfully",
		"family_tree": tree,
	})
}

// GetTree returns a single tree if the caller may read it
func GetTree(c echo.Context) error {
	prometheus.RecordResourceOperation("tree", "get")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "id")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if !treeAccess(principal, tree, access.IntentRead) {
		return denyRead(c, "tree", "family tree not found")
	}

	response := echo.Map{"family_tree": tree}
	var owner model.User
	if result := database.GetDB().First(&owner, "id = ?", tree.UserID); result.Error == nil {
		response["owner"] = echo.Map{
			"id":         owner.ID,
			"first_name": owner.FirstName,
			"last_name":  owner.LastName,
		}
	}

	return c.JSON(http.StatusOK, response)
}

// UpdateTree applies partial updates to a tree the caller may write
func UpdateTree(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "update")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "id")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if !treeAccess(principal, tree, access.IntentWrite) {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "tree", "family tree not found")
	}

	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		PrivacyLevel *string `json:"privacy_level"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tree update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > 255 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name must be between 1 and 255 characters"})
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.PrivacyLevel != nil {
		if !model.ValidPrivacyLevel(*req.PrivacyLevel) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "privacy_level must be private, public, or shared"})
		}
		updates["privacy_level"] = *req.PrivacyLevel
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(tree).Updates(updates); result.Error != nil {
		log.Error("Failed to update tree", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update family tree"})
	}

	log.Info("Family tree updated", zap.String("tree_id", tree.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Family tree updated successfully",
		"family_tree": tree,
	})
}

// DeleteTree soft-deletes a tree. Its persons keep their own flags; read
// paths exclude them through the join on the deleted parent. Deletion is
// reserved for the owner, edit grants do not extend to it.
func DeleteTree(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "delete")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "id")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if principal == nil || principal.ID != tree.UserID {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "tree", "family tree not found")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	now := time.Now()
	result := database.GetDB().Model(tree).Updates(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": now,
	})
	if result.Error != nil {
		log.Error("Failed to delete tree", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete family tree"})
	}

	log.Info("Family tree deleted", zap.String("tree_id", tree.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Family tree deleted successfully"})
}

// TreeStats returns live aggregates for a readable tree. Counts come from
// the rows, not the advisory person_count column.
func TreeStats(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "stats")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "id")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if !treeAccess(principal, tree, access.IntentRead) {
		return denyRead(c, "tree", "family tree not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var personCount int64
	if err := database.GetDB().Model(&model.Person{}).
		Where("tree_id = ? AND is_deleted = ?", tree.ID, false).
		Count(&personCount).Error; err != nil {
		log.Error("Failed to count persons", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}

	var relationshipCount int64
	if err := database.GetDB().Model(&model.Relationship{}).
		Joins("JOIN persons ON persons.id = relationships.person_id").
		Where("persons.tree_id = ? AND persons.is_deleted = ?", tree.ID, false).
		Count(&relationshipCount).Error; err != nil {
		log.Error("Failed to count relationships", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}

	var genderCounts []struct {
		Gender string `json:"gender"`
		Count  int64  `json:"count"`
	}
	if err := database.GetDB().Model(&model.Person{}).
		Select("gender, count(*) as count").
		Where("tree_id = ? AND is_deleted = ?", tree.ID, false).
		Group("gender").
		Scan(&genderCounts).Error; err != nil {
		log.Error("Failed to count persons by gender", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}

	prometheus.UpdatePersonsPerTree(tree.ID.String(), int(personCount))

	return c.JSON(http.StatusOK, echo.Map{
		"tree_id":            tree.ID,
		"person_count":       personCount,
		"relationship_count": relationshipCount,
		"persons_by_gender":  genderCounts,
		"last_updated":       tree.UpdatedAt,
	})
}

// RecountTree recomputes the advisory person_count from the live rows.
// Owner-only rather than write-access: reconciliation is an owner
// maintenance action, not an editing one.
func RecountTree(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("tree", "recount")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "id")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if principal == nil || principal.ID != tree.UserID {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "tree", "family tree not found")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Person{}).
			Where("tree_id = ? AND is_deleted = ?", tree.ID, false).
			Count(&count).Error; err != nil {
			return err
		}
		tree.PersonCount = int(count)
		return tx.Model(tree).Update("person_count", count).Error
	})
	if err != nil {
		log.Error("Failed to recount tree", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recount family tree"})
	}

	prometheus.UpdatePersonsPerTree(tree.ID.String(), tree.PersonCount)

	log.Info("Family tree recounted",
		zap.String("tree_id", tree.ID.String()),
		zap.Int("person_count", tree.PersonCount))
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Person count reconciled",
		"person_count": tree.PersonCount,
	})
}
