package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Genders
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderUnknown = "unknown"
)

// Person belongs to exactly one family tree. Visibility follows the owning
// tree's owner and privacy level; the person's own PrivacyLevel is stored
// but not consulted by access checks.
type Person struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TreeID        uuid.UUID  `json:"tree_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	FirstName     string     `json:"first_name" gorm:"type:varchar(100);index:idx_persons_name;not null"`
	LastName      string     `json:"last_name" gorm:"type:varchar(100);index:idx_persons_name;not null"`
	MiddleName    string     `json:"middle_name,omitempty" gorm:"type:varchar(100)"`
	BirthDate     *time.Time `json:"birth_date,omitempty" gorm:"type:date"`
	DeathDate     *time.Time `json:"death_date,omitempty" gorm:"type:date"`
	BirthLocation string     `json:"birth_location,omitempty" gorm:"type:varchar(255);index"`
	DeathLocation string     `json:"death_location,omitempty" gorm:"type:varchar(255);index"`
	Gender        string     `json:"gender,omitempty" gorm:"type:varchar(10)"`
	Biography     string     `json:"biography,omitempty" gorm:"type:text"`
	Notes         string     `json:"notes,omitempty" gorm:"type:text"`
	PrivacyLevel  string     `json:"privacy_level" gorm:"type:varchar(20);default:'private'"`
	CreatedBy     uuid.UUID  `json:"created_by" gorm:"type:uuid"`
	IsDeleted     bool       `json:"-" gorm:"index;default:false"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Tree FamilyTree `json:"-" gorm:"foreignKey:TreeID"`
}

// TableName pins the table to "persons"; the naming strategy would
// otherwise pluralize Person to "people" and break the raw SQL fragments
// that join against it.
func (Person) TableName() string {
	return "persons"
}

func (p *Person) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ValidGender reports whether the value is a recognized gender.
func ValidGender(gender string) bool {
	switch gender {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	}
	return false
}
