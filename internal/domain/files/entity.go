package files

import (
	"io"
	"time"

	"fileservices/internal/storage"
)

const (
	ActionUploaded = "uploaded"
	ActionDeleted  = "deleted"
)

// UploadInput is a single file payload as received from a client.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64 // -1 when unknown
	Body         io.Reader
}

// UploadResult reports where an upload landed and how to address it.
type UploadResult struct {
	Filename string       `json:"filename"`
	Path     string       `json:"path"`
	URL      string       `json:"url"`
	IsImage  bool         `json:"isImage"`
	Kind     storage.Kind `json:"-"`
	Size     int64        `json:"-"`
}

// Listing holds the two independent namespace enumerations.
type Listing struct {
	Uploads []string `json:"uploads"`
	Images  []string `json:"images"`
}

// Event is one upload or deletion. It is journaled and broadcast, never read
// back to answer a lookup.
type Event struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Action      string    `gorm:"column:action;size:16;index" json:"action"`
	Filename    string    `gorm:"column:filename;index" json:"filename"`
	Kind        string    `gorm:"column:kind;size:16" json:"kind"`
	ContentType string    `gorm:"column:content_type" json:"content_type,omitempty"`
	Size        int64     `gorm:"column:size" json:"size"`
	URL         string    `gorm:"column:url" json:"url,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Event) TableName() string { return "file_events" }
