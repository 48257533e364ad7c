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

// loadGroup fetches a collaboration group by path id.
func loadGroup(c echo.Context) *model.CollaborationGroup {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil
	}

	var group model.CollaborationGroup
	if result := database.GetDB().First(&group, "id = ?", groupID); result.Error != nil {
		return nil
	}
	return &group
}

// groupMember reports whether the user created the group or holds any
// permission issued through it.
func groupMember(group *model.CollaborationGroup, userID uuid.UUID) bool {
	if group.CreatedBy == userID {
		return true
	}
	var count int64
	database.GetDB().Model(&model.CollaborationPermission{}).
		Where("group_id = ? AND user_id = ?", group.ID, userID).
		Count(&count)
	return count > 0
}

// refreshGroupCounts recomputes member_count and tree_count from the
// group's permission rows. The creator always counts as a member.
func refreshGroupCounts(tx *gorm.DB, groupID uuid.UUID) error {
	var members int64
	if err := tx.Model(&model.CollaborationPermission{}).
		Where("group_id = ?", groupID).
		Distinct("user_id").
		Count(&members).Error; err != nil {
		return err
	}

	var trees int64
	if err := tx.Model(&model.CollaborationPermission{}).
		Where("group_id = ?", groupID).
		Distinct("tree_id").
		Count(&trees).Error; err != nil {
		return err
	}

	return tx.Model(&model.CollaborationGroup{}).
		Where("id = ?", groupID).
		UpdateColumns(map[string]interface{}{
			"member_count": members + 1,
			"tree_count":   trees,
			"updated_at":   time.Now(),
		}).Error
}

// ListGroups lists groups the caller created or belongs to
func ListGroups(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("group", "list")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var groups []model.CollaborationGroup
	result := database.GetDB().
		Where("created_by = ? OR id IN (?)", principal.ID,
			database.GetDB().Model(&model.CollaborationPermission{}).
				Select("group_id").
				Where("user_id = ?", principal.ID)).
		Order("created_at DESC").
		Find(&groups)
	if result.Error != nil {
		log.Error("Failed to list groups", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list collaboration groups"})
	}

	return c.JSON(http.StatusOK, echo.Map{"collaboration_groups": groups})
}

// CreateGroup creates a collaboration group with the caller as creator
func CreateGroup(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("group", "create")

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
		log.Error("Failed to parse group request", zap.Error(err))
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

	group := model.CollaborationGroup{
		Name:         req.Name,
		Description:  req.Description,
		CreatedBy:    principal.ID,
		MemberCount:  1,
		PrivacyLevel: req.PrivacyLevel,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&group); result.Error != nil {
		log.Error("Failed to create group", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create collaboration group"})
	}

	log.Info("Collaboration group created",
		zap.String("group_id", group.ID.String()),
		zap.String("user_id", principal.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":             "Collaboration group created successfully",
		"collaboration_group": group,
	})
}

// GetGroup returns a group to its members
func GetGroup(c echo.Context) error {
	prometheus.RecordResourceOperation("group", "get")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}
	if !groupMember(group, principal.ID) {
		return denyRead(c, "group", "collaboration group not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"collaboration_group": group})
}

// ListGroupPermissions lists the grants issued through a group
func ListGroupPermissions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("permission", "list")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}
	if !groupMember(group, principal.ID) {
		return denyRead(c, "permission", "collaboration group not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var permissions []model.CollaborationPermission
	result := database.GetDB().
		Where("group_id = ?", group.ID).
		Order("created_at").
		Find(&permissions)
	if result.Error != nil {
		log.Error("Failed to list permissions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list permissions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"permissions": permissions})
}

// GrantPermission issues a grant on a tree through a group. Only the
// tree's owner can share it, and only into a group they belong to.
func GrantPermission(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("permission", "grant")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}
	// Only the group's creator shares trees through it, and only trees they
	// own
	if group.CreatedBy != principal.ID {
		return denyWrite(c, groupMember(group, principal.ID), "permission", "collaboration group not found")
	}

	var req struct {
		UserID          string `json:"user_id"`
		TreeID          string `json:"tree_id"`
		PermissionLevel string `json:"permission_level"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse permission request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id must be a valid id"})
	}
	treeID, err := uuid.Parse(req.TreeID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tree_id must be a valid id"})
	}
	if !model.ValidPermissionLevel(req.PermissionLevel) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "permission_level must be view, edit, or admin"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tree model.FamilyTree
	if result := database.GetDB().Scopes(model.ActiveTrees).
		First(&tree, "family_trees.id = ?", treeID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "family tree not found"})
	}
	if tree.UserID != principal.ID {
		return denyWrite(c, false, "permission", "family tree not found")
	}

	var user model.User
	if result := database.GetDB().
		First(&user, "id = ? AND is_active = ?", userID, true); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	// Upsert per user and tree: re-granting adjusts the level instead of
	// stacking rows
	permission := model.CollaborationPermission{
		GroupID:         group.ID,
		UserID:          userID,
		TreeID:          treeID,
		PermissionLevel: req.PermissionLevel,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		var existing model.CollaborationPermission
		result := tx.Where("group_id = ? AND user_id = ? AND tree_id = ?",
			group.ID, userID, treeID).First(&existing)
		if result.Error == nil {
			existing.PermissionLevel = req.PermissionLevel
			if err := tx.Model(&existing).Update("permission_level", req.PermissionLevel).Error; err != nil {
				return err
			}
			permission = existing
		} else {
			if err := tx.Create(&permission).Error; err != nil {
				return err
			}
		}
		return refreshGroupCounts(tx, group.ID)
	})
	if err != nil {
		log.Error("Failed to grant permission", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to grant permission"})
	}

	log.Info("Permission granted",
		zap.String("group_id", group.ID.String()),
		zap.String("tree_id", treeID.String()),
		zap.String("level", req.PermissionLevel))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Permission granted successfully",
		"permission": permission,
	})
}

// RevokePermission removes a grant.
func RevokePermission(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("permission", "revoke")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}

	permissionID, err := uuid.Parse(c.Param("permissionId"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var permission model.CollaborationPermission
	if result := database.GetDB().
		First(&permission, "id = ? AND group_id = ?", permissionID, group.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
	}

	// Revocation carries the same authority as granting: the group's
	// creator, for a tree they own
	var tree model.FamilyTree
	treeOwner := false
	if result := database.GetDB().First(&tree, "id = ?", permission.TreeID); result.Error == nil {
		treeOwner = tree.UserID == principal.ID
	}
	if group.CreatedBy != principal.ID || !treeOwner {
		return denyWrite(c, groupMember(group, principal.ID), "permission", "permission not found")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&permission).Error; err != nil {
			return err
		}
		return refreshGroupCounts(tx, group.ID)
	})
	if err != nil {
		log.Error("Failed to revoke permission", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke permission"})
	}

	log.Info("Permission revoked", zap.String("permission_id", permission.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Permission revoked successfully"})
}

// ListGroupMessages lists a group's messages, oldest first
func ListGroupMessages(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("message", "list")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}
	if !groupMember(group, principal.ID) {
		return denyRead(c, "message", "collaboration group not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var messages []model.Message
	result := database.GetDB().
		Where("group_id = ?", group.ID).
		Order("created_at").
		Find(&messages)
	if result.Error != nil {
		log.Error("Failed to list messages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

// PostGroupMessage posts a message into a group the caller belongs to
func PostGroupMessage(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("message", "post")

	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	group := loadGroup(c)
	if group == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collaboration group not found"})
	}
	if !groupMember(group, principal.ID) {
		return denyRead(c, "message", "collaboration group not found")
	}

	var req struct {
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse message request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}
	if req.MessageType == "" {
		req.MessageType = model.MessageText
	}
	switch req.MessageType {
	case model.MessageText, model.MessageSystem, model.MessageNotification:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message_type must be text, system, or notification"})
	}

	message := model.Message{
		GroupID:     group.ID,
		SenderID:    principal.ID,
		Content:     req.Content,
		MessageType: req.MessageType,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&message); result.Error != nil {
		log.Error("Failed to post message", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to post message"})
	}

	log.Info("Message posted",
		zap.String("group_id", group.ID.String()),
		zap.String("message_id", message.ID.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message_record": message,
		"message":        "Message posted successfully",
	})
}
