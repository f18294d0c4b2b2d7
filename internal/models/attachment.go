package models

import (
	"strings"
	"time"
)

// AttachmentURLPrefix is the public route attachments are served from.
const AttachmentURLPrefix = "/media/"

type Attachment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MessageID uint   `gorm:"not null;index" json:"message_id"`
	Path      string `gorm:"size:512;not null" json:"path"`
	MimeType  string `gorm:"size:127;not null" json:"mime_type"`
	Size      int64  `gorm:"not null" json:"size"`
}

type AttachmentResponse struct {
	ID       uint   `json:"id"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	IsImage  bool   `json:"is_image"`
}

// URL returns the public, path-addressed download URL of the attachment.
func (a *Attachment) URL() string {
	return AttachmentURLPrefix + strings.TrimLeft(a.Path, "/")
}

// IsImage reports whether the stored mime type is an image type.
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

func (a *Attachment) ToResponse() AttachmentResponse {
	return AttachmentResponse{
		ID:       a.ID,
		Path:     a.Path,
		URL:      a.URL(),
		MimeType: a.MimeType,
		Size:     a.Size,
		IsImage:  a.IsImage(),
	}
}
