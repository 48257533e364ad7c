package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message types
const (
	MessageText         = "text"
	MessageSystem       = "system"
	MessageNotification = "notification"
)

// Message is posted by a group member into a collaboration group.
type Message struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID     uuid.UUID  `json:"group_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	SenderID    uuid.UUID  `json:"sender_id" gorm:"type:uuid;index;not null"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	MessageType string     `json:"message_type" gorm:"type:varchar(20);default:'text'"`
	IsRead      bool       `json:"is_read" gorm:"default:false"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Group CollaborationGroup `json:"-" gorm:"foreignKey:GroupID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
