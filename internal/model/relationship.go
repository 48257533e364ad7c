package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relationship types
const (
	RelationParent  = "parent"
	RelationChild   = "child"
	RelationSpouse  = "spouse"
	RelationSibling = "sibling"
)

// Relationship is a directed edge between two persons of the same tree.
// The same-tree constraint is enforced by the handler, not the storage
// layer.
type Relationship struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PersonID         uuid.UUID `json:"person_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	RelatedPersonID  uuid.UUID `json:"related_person_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	RelationshipType string    `json:"relationship_type" gorm:"type:varchar(50);index;not null"`
	IsBiological     bool      `json:"is_biological" gorm:"default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Person        Person `json:"-" gorm:"foreignKey:PersonID"`
	RelatedPerson Person `json:"-" gorm:"foreignKey:RelatedPersonID"`
}

func (r *Relationship) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ValidRelationshipType reports whether the value is a recognized edge type.
func ValidRelationshipType(t string) bool {
	switch t {
	case RelationParent, RelationChild, RelationSpouse, RelationSibling:
		return true
	}
	return false
}
