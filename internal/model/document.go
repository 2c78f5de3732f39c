package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusError      DocumentStatus = "error"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain"
)

// Document is an uploaded file and the state of its processing run.
// ProcessingProgress is polled by clients; readers must tolerate values that
// are stale by one step.
type Document struct {
	BaseModel
	Filename           string         `gorm:"size:500;not null;index" json:"filename"`
	FilePath           string         `gorm:"size:1000" json:"file_path"`
	ContentType        string         `gorm:"size:100" json:"content_type"`
	Size               int64          `gorm:"not null" json:"size"`
	OwnerID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Processed          bool           `gorm:"default:false" json:"processed"`
	ProcessingProgress int            `gorm:"default:0" json:"processing_progress"`
	ProcessingStatus   DocumentStatus `gorm:"size:50;default:'pending'" json:"processing_status"`
	ErrorMessage       string         `gorm:"type:text" json:"error_message,omitempty"`
	Indexed            bool           `gorm:"default:false" json:"indexed"`
	ProcessedAt        *time.Time     `json:"processed_at,omitempty"`

	// Relations
	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID" json:"chunks,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk is one retrievable span of a document's text.
type DocumentChunk struct {
	BaseModel
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkID    string    `gorm:"size:100;not null;uniqueIndex" json:"chunk_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PageNumber *int      `json:"page_number"`
	Section    string    `gorm:"size:255" json:"section"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ChunkID returns the wire-visible identifier of the index-th chunk of a
// document. It is the primary key of the chunk's vector record.
func ChunkID(documentID uuid.UUID, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}
