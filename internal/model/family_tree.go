package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FamilyTree is owned by exactly one user. PersonCount is an advisory
// denormalized counter: maintained by atomic increments on person
// create/delete, reconcilable via the recount operation, never treated as
// ground truth.
type FamilyTree struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	Name         string     `json:"name" gorm:"type:varchar(255);not null"`
	Description  string     `json:"description,omitempty" gorm:"type:text"`
	PrivacyLevel string     `json:"privacy_level" gorm:"type:varchar(20);default:'private'"`
	PersonCount  int        `json:"person_count" gorm:"default:0"`
	IsDeleted    bool       `json:"-" gorm:"index;default:false"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (t *FamilyTree) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
