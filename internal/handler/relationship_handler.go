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

// ListPersonRelationships lists the edges touching a visible person, in
// either direction.
func ListPersonRelationships(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("relationship", "list")

	principal := middleware.PrincipalFromContext(c)
	person := loadPerson(c, "personId")
	if person == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	tree := personTree(person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	if !treeAccess(principal, tree, access.IntentRead) {
		return denyRead(c, "relationship", "person not found")
	}

	// Edges whose other endpoint has been soft-deleted are hidden too
	defer prometheus.TrackDBOperation("query")(time.Now())
	var relationships []model.Relationship
	result := database.GetDB().Model(&model.Relationship{}).
		Joins("JOIN persons p1 ON p1.id = relationships.person_id").
		Joins("JOIN persons p2 ON p2.id = relationships.related_person_id").
		Where("(relationships.person_id = ? OR relationships.related_person_id = ?)", person.ID, person.ID).
		Where("p1.is_deleted = ? AND p2.is_deleted = ?", false, false).
		Order("relationships.created_at").
		Find(&relationships)
	if result.Error != nil {
		log.Error("Failed to list relationships", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list relationships"})
	}

	return c.JSON(http.StatusOK, echo.Map{"relationships": relationships})
}

// CreateRelationship links two visible persons of the same tree. Both
// endpoints must be writable through the owning tree; a cross-tree edge or
// a self-edge is rejected before it reaches storage.
func CreateRelationship(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("relationship", "create")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		PersonID         string `json:"person_id"`
		RelatedPersonID  string `json:"related_person_id"`
		RelationshipType string `json:"relationship_type"`
		IsBiological     *bool  `json:"is_biological"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse relationship request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	personID, err := uuid.Parse(req.PersonID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "person_id must be a valid id"})
	}
	relatedID, err := uuid.Parse(req.RelatedPersonID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "related_person_id must be a valid id"})
	}
	if personID == relatedID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a person cannot be related to themselves"})
	}
	if !model.ValidRelationshipType(req.RelationshipType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "relationship_type must be parent, child, spouse, or sibling"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var person, related model.Person
	if result := database.GetDB().Scopes(model.ActivePersons).
		First(&person, "persons.id = ?", personID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	if result := database.GetDB().Scopes(model.ActivePersons).
		First(&related, "persons.id = ?", relatedID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}

	if person.TreeID != related.TreeID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "both persons must belong to the same family tree"})
	}

	tree := personTree(&person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person not found"})
	}
	if !treeAccess(principal, tree, access.IntentWrite) {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "relationship", "person not found")
	}

	relationship := model.Relationship{
		PersonID:         person.ID,
		RelatedPersonID:  related.ID,
		RelationshipType: req.RelationshipType,
		IsBiological:     true,
	}
	if req.IsBiological != nil {
		relationship.IsBiological = *req.IsBiological
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&relationship); result.Error != nil {
		log.Error("Failed to create relationship", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create relationship"})
	}

	log.Info("Relationship created",
		zap.String("relationship_id", relationship.ID.String()),
		zap.String("type", relationship.RelationshipType))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Relationship created successfully",
		"relationship": relationship,
	})
}

// DeleteRelationship removes an edge if its tree is writable by the caller
func DeleteRelationship(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("relationship", "delete")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	relationshipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var relationship model.Relationship
	if result := database.GetDB().First(&relationship, "id = ?", relationshipID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
	}

	var person model.Person
	if result := database.GetDB().Scopes(model.ActivePersons).
		First(&person, "persons.id = ?", relationship.PersonID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
	}
	tree := personTree(&person)
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
	}
	if !treeAccess(principal, tree, access.IntentWrite) {
		readable := treeAccess(principal, tree, access.IntentRead)
		return denyWrite(c, readable, "relationship", "relationship not found")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&relationship); result.Error != nil {
		log.Error("Failed to delete relationship", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete relationship"})
	}

	log.Info("Relationship deleted", zap.String("relationship_id", relationship.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Relationship deleted successfully"})
}
