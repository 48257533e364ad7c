package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collaboration permission levels, ordered weakest to strongest.
const (
	PermissionView  = "view"
	PermissionEdit  = "edit"
	PermissionAdmin = "admin"
)

// CollaborationGroup bundles per-user, per-tree permission grants.
type CollaborationGroup struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	CreatedBy    uuid.UUID `json:"created_by" gorm:"type:uuid;index"`
	MemberCount  int       `json:"member_count" gorm:"default:1"`
	TreeCount    int       `json:"tree_count" gorm:"default:0"`
	PrivacyLevel string    `json:"privacy_level" gorm:"type:varchar(20);default:'private'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (g *CollaborationGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// CollaborationPermission grants a user a permission level on a tree,
// independent of tree ownership.
type CollaborationPermission struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID         uuid.UUID `json:"group_id" gorm:"type:uuid;index:idx_permissions_group_user;not null;constraint:OnDelete:CASCADE"`
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_permissions_group_user;not null;constraint:OnDelete:CASCADE"`
	TreeID          uuid.UUID `json:"tree_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	PermissionLevel string    `json:"permission_level" gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Group CollaborationGroup `json:"-" gorm:"foreignKey:GroupID"`
	Tree  FamilyTree         `json:"-" gorm:"foreignKey:TreeID"`
}

func (p *CollaborationPermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ValidPermissionLevel reports whether the value is a recognized grant level.
func ValidPermissionLevel(level string) bool {
	switch level {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}
