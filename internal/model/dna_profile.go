package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DnaProfile is owned by a user; estimates and matches are its children and
// are removed with it.
type DnaProfile struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	TestingCompany   string    `json:"testing_company" gorm:"type:varchar(50);not null"`
	UploadDate       time.Time `json:"upload_date"`
	FileHash         string    `json:"file_hash" gorm:"type:varchar(255);uniqueIndex;not null"`
	ProcessingStatus string    `json:"processing_status" gorm:"type:varchar(20);index;default:'pending'"`
	EthnicityVersion string    `json:"ethnicity_version,omitempty" gorm:"type:varchar(10)"`
	MatchCount       int       `json:"match_count" gorm:"default:0"`
	IsPublic         bool      `json:"is_public" gorm:"default:false"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *DnaProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UploadDate.IsZero() {
		p.UploadDate = time.Now()
	}
	return nil
}

// EthnicityEstimate is a per-region breakdown attached to a DNA profile.
type EthnicityEstimate struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DnaProfileID    uuid.UUID `json:"dna_profile_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	Region          string    `json:"region" gorm:"type:varchar(100);not null"`
	Percentage      float64   `json:"percentage" gorm:"type:decimal(5,2);not null"`
	ConfidenceScore float64   `json:"confidence_score" gorm:"type:decimal(3,2)"`
	CreatedAt       time.Time `json:"created_at"`

	DnaProfile DnaProfile `json:"-" gorm:"foreignKey:DnaProfileID"`
}

func (e *EthnicityEstimate) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// DnaMatch links two DNA profiles with shared-DNA statistics.
type DnaMatch struct {
	ID                    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DnaProfileID          uuid.UUID `json:"dna_profile_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	MatchProfileID        uuid.UUID `json:"match_profile_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	SharedDna             int       `json:"shared_dna" gorm:"not null"`
	SharedSegments        int       `json:"shared_segments" gorm:"not null"`
	PredictedRelationship string    `json:"predicted_relationship,omitempty" gorm:"type:varchar(50)"`
	ConfidenceScore       float64   `json:"confidence_score" gorm:"type:decimal(3,2)"`
	IsContacted           bool      `json:"is_contacted" gorm:"default:false"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	DnaProfile DnaProfile `json:"-" gorm:"foreignKey:DnaProfileID"`
}

func (m *DnaMatch) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
