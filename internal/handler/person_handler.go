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

// loadPerson fetches a visible person by its path id. Visibility already
// folds in the owning tree's soft-delete flag.
func loadPerson(c echo.Context, param string) *model.Person {
	personID, err := uuid.Parse(c.Param(param))
	if err != nil {
		return nil
	}

	var person model.Person
	result := database.GetDB().Scopes(model.ActivePersons).First(&person, "persons.id = ?", personID)
	if result.Error != nil {
		return nil
	}
	return &person
}

// personTree loads the owning tree of a person for access evaluation.
func personTree(person *model.Person) *model.FamilyTree {
	var tree model.FamilyTree
	result := database.GetDB().Scopes(model.ActiveTrees).First(&tree, "family_trees.id = ?", person.TreeID)
	if result.Error != nil {
		return nil
	}
	return &tree
}

type personRequest struct {
	TreeID        string  `json:"tree_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	MiddleName    string  `json:"middle_name"`
	BirthDate     *string `json:"birth_date"`
	DeathDate     *string `json:"death_date"`
	BirthLocation string  `json:"birth_location"`
	DeathLocation string  `json:"death_location"`
	Gender        string  `json:"gender"`
	Biography     string  `json:"biography"`
	Notes         string  `json:"notes"`
	PrivacyLevel  string  `json:"privacy_level"`
}

func parseDate(value *string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

// ListTreePersons lists the visible persons of a readable tree
func ListTreePersons(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("person", "list")

	principal := middleware.PrincipalFromContext(c)
	tree := loadTree(c, "treeId")
	if tree == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if !treeAccess(principal, tree, access.IntentRead) {
		return denyRead(c, "person", "family tree not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var persons []model.Person
	result := database.GetDB().
		Where("tree_id = ? AND is_deleted = ?", tree.ID, false).
		Order("created_at DESC").
		Find(&persons)
	if result.Error != nil {
		log.Error("Failed to list persons", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list persons"})
	}

	return c.JSON(http.StatusOK, echo.Map{"persons": persons})
}

// GetPerson returns a single visible person if the owning tree is readable
func GetPerson(c echo.Context) error {
	prometheus.RecordResourceOperation("person", "get")

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
		return denyRead(c, "person", "person not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"person": person})
}

// CreatePerson inserts a person and bumps the tree's advisory counter in
// the same transaction.
func CreatePerson(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("person", "create")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req personRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse person request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	treeID, err := uuid.Parse(req.TreeID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tree_id must be a valid id"})
	}

	var tree model.FamilyTree
	if result := database.GetDB().Scopes(model.ActiveTrees).
		First(&tree, "family_trees.id = ?", treeID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if !treeAccess(principal, &tree, access.IntentWrite) {
		readable := treeAccess(principal, &tree, access.IntentRead)
		return denyWrite(c, readable, "person", "family tree not found")
	}

	if req.FirstName == "" || len(req.FirstName) > 100 || req.LastName == "" || len(req.LastName) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first and last name are required and must be at most 100 characters"})
	}
	if req.Gender != "" && !model.ValidGender(req.Gender) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gender must be male, female, or unknown"})
	}
	if req.PrivacyLevel == "" {
		req.PrivacyLevel = model.PrivacyPrivate
	}
	if !model.ValidPrivacyLevel(req.PrivacyLevel) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "privacy_level must be private, public, or shared"})
	}

	birthDate, ok := parseDate(req.BirthDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "birth_date must be a valid date"})
	}
	deathDate, ok := parseDate(req.DeathDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "death_date must be a valid date"})
	}
	if birthDate != nil && deathDate != nil && deathDate.Before(*birthDate) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "death_date cannot precede birth_date"})
	}

	person := model.Person{
		TreeID:        tree.ID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		MiddleName:    req.MiddleName,
		BirthDate:     birthDate,
		DeathDate:     deathDate,
		BirthLocation: req.BirthLocation,
		DeathLocation: req.DeathLocation,
		Gender:        req.Gender,
		Biography:     req.Biography,
		Notes:         req.Notes,
		PrivacyLevel:  req.PrivacyLevel,
		CreatedBy:     principal.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&person).Error; err != nil {
			return err
		}
		return tx.Model(&model.FamilyTree{}).
			Where("id = ?", tree.ID).
			UpdateColumns(map[string]interface{}{
				"person_count": gorm.Expr("person_count + ?", 1),
				"updated_at":   time.Now(),
			}).Error
	})
	if err != nil {
		log.Error("Failed to create person", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create person"})
	}

	log.Info("Person created",
		zap.String("person_id", person.ID.String()),
		zap.String("tree_id", tree.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Person created successfully",
		"person":  person,
	})
}

// UpdatePerson applies partial updates to a person of a writable tree
func UpdatePerson(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("person", "update")

	principal := middleware.PrincipalFromContext(c)
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
		return denyWrite(c, readable, "person", "person not found")
	}

	var req struct {
		FirstName     *string `json:"first_name"`
		LastName      *string `json:"last_name"`
		MiddleName    *string `json:"middle_name"`
		BirthDate     *string `json:"birth_date"`
		DeathDate     *string `json:"death_date"`
		BirthLocation *string `json:"birth_location"`
		DeathLocation *string `json:"death_location"`
		Gender        *string `json:"gender"`
		Biography     *string `json:"biography"`
		Notes         *string `json:"notes"`
		PrivacyLevel  *string `json:"privacy_level"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse person update request", zap.Error(err))
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
	if req.MiddleName != nil {
		updates["middle_name"] = *req.MiddleName
	}
	if req.BirthDate != nil {
		parsed, ok := parseDate(req.BirthDate)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "birth_date must be a valid date"})
		}
		updates["birth_date"] = parsed
	}
	if req.DeathDate != nil {
		parsed, ok := parseDate(req.DeathDate)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "death_date must be a valid date"})
		}
		updates["death_date"] = parsed
	}
	if req.BirthLocation != nil {
		updates["birth_location"] = *req.BirthLocation
	}
	if req.DeathLocation != nil {
		updates["death_location"] = *req.DeathLocation
	}
	if req.Gender != nil {
		if *req.Gender != "" && !model.ValidGender(*req.Gender) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "gender must be male, female, or unknown"})
		}
		updates["gender"] = *req.Gender
	}
	if req.Biography != nil {
		updates["biography"] = *req.Biography
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
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
	if result := database.GetDB().Model(person).Updates(updates); result.Error != nil {
		log.Error("Failed to update person", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update person"})
	}

	log.Info("Person updated", zap.String("person_id", person.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Person updated successfully",
		"person":  person,
	})
}

// DeletePerson soft-deletes a person and decrements the tree's advisory
// counter in the same transaction. The counter is clamped at zero so a
// drifted value can never go negative.
func DeletePerson(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("person", "delete")

	principal := middleware.PrincipalFromContext(c)
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
		return denyWrite(c, readable, "person", "person not found")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(person).Update("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&model.FamilyTree{}).
			Where("id = ?", tree.ID).
			UpdateColumns(map[string]interface{}{
				"person_count": gorm.Expr("GREATEST(person_count - ?, 0)", 1),
				"updated_at":   time.Now(),
			}).Error
	})
	if err != nil {
		log.Error("Failed to delete person", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete person"})
	}

	log.Info("Person deleted",
		zap.String("person_id", person.ID.String()),
		zap.String("tree_id", tree.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Person deleted successfully"})
}
