package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account tiers
const (
	AccountFree         = "free"
	AccountPremium      = "premium"
	AccountProfessional = "professional"
)

// Privacy levels shared by users, trees and persons
const (
	PrivacyPrivate = "private"
	PrivacyPublic  = "public"
	PrivacyShared  = "shared"
)

// User represents a registered account. Accounts are deactivated via
// IsActive, never hard-deleted.
type User struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email            string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash     string     `json:"-" gorm:"type:varchar(255);not null"`
	FirstName        string     `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName         string     `json:"last_name" gorm:"type:varchar(100);not null"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty" gorm:"type:date"`
	AccountType      string     `json:"account_type" gorm:"type:varchar(20);default:'free'"`
	EmailVerified    bool       `json:"email_verified" gorm:"default:false"`
	PrivacyLevel     string     `json:"privacy_level" gorm:"type:varchar(20);default:'private'"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	IsActive         bool       `json:"is_active" gorm:"index;default:true"`
	GdprConsent      bool       `json:"gdpr_consent" gorm:"default:false"`
	MarketingConsent bool       `json:"marketing_consent" gorm:"default:false"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ValidPrivacyLevel reports whether the value is one of the tri-state
// privacy levels.
func ValidPrivacyLevel(level string) bool {
	switch level {
	case PrivacyPrivate, PrivacyPublic, PrivacyShared:
		return true
	}
	return false
}
