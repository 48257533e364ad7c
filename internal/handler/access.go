package handler

import (
	"net/http"

	"genealogy-service/internal/access"
	"genealogy-service/internal/model"
	"genealogy-service/pkg/database"
	"genealogy-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// grantFor returns the strongest collaboration level granted to the
// principal on the tree. Ownership is handled by the evaluator, not here.
func grantFor(p *access.Principal, treeID uuid.UUID) access.Level {
	if p == nil {
		return access.LevelNone
	}

	var perms []model.CollaborationPermission
	if err := database.GetDB().
		Where("user_id = ? AND tree_id = ?", p.ID, treeID).
		Find(&perms).Error; err != nil {
		return access.LevelNone
	}

	level := access.LevelNone
	for _, perm := range perms {
		if l := access.ParseLevel(perm.PermissionLevel); l > level {
			level = l
		}
	}
	return level
}

// treeAccess evaluates the intent against the tree's owner and privacy
// level, folding in any collaboration grant. The grant lookup is skipped
// when ownership or privacy alone already decide the outcome.
func treeAccess(p *access.Principal, tree *model.FamilyTree, intent access.Intent) bool {
	res := access.Resource{OwnerID: tree.UserID, PrivacyLevel: tree.PrivacyLevel}
	if access.CanAccess(p, res, intent) {
		return true
	}
	return access.Decide(p, res, grantFor(p, tree.ID), intent)
}

// denyRead answers a failed read check. Denied reads are indistinguishable
// from missing records, so the status and message match a true absence.
func denyRead(c echo.Context, resource, message string) error {
	prometheus.RecordAccessDenied(resource, "read")
	return c.JSON(http.StatusNotFound, echo.Map{"error": message})
}

// denyWrite answers a failed write check: 403 when the caller can already
// read the resource, 404 otherwise so existence stays hidden.
func denyWrite(c echo.Context, readable bool, resource, message string) error {
	prometheus.RecordAccessDenied(resource, "write")
	if readable {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": message})
}
