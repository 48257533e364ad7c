package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media types
const (
	MediaPhoto    = "photo"
	MediaDocument = "document"
	MediaAudio    = "audio"
	MediaVideo    = "video"
)

// MediaItem references a person; it stores file metadata and URLs only,
// there is no upload pipeline in this service.
type MediaItem struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PersonID     uuid.UUID `json:"person_id" gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE"`
	UploadedBy   uuid.UUID `json:"uploaded_by" gorm:"type:uuid;index;not null"`
	FileName     string    `json:"file_name" gorm:"type:varchar(255);not null"`
	OriginalName string    `json:"original_name" gorm:"type:varchar(255);not null"`
	MimeType     string    `json:"mime_type" gorm:"type:varchar(100);not null"`
	FileSize     int64     `json:"file_size" gorm:"not null"`
	FileURL      string    `json:"file_url" gorm:"type:varchar(500);not null"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" gorm:"type:varchar(500)"`
	MediaType    string    `json:"media_type" gorm:"type:varchar(50);index;not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	OcrText      string    `json:"ocr_text,omitempty" gorm:"type:text"`
	IsProcessed  bool      `json:"is_processed" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Person Person `json:"-" gorm:"foreignKey:PersonID"`
}

func (m *MediaItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ValidMediaType reports whether the value is a recognized media type.
func ValidMediaType(t string) bool {
	switch t {
	case MediaPhoto, MediaDocument, MediaAudio, MediaVideo:
		return true
	}
	return false
}
