package model

import (
	"github.com/google/uuid"
)

type Query struct {
	BaseModel
	QueryText string    `gorm:"type:text;not null" json:"query_text"`
	Response  string    `gorm:"type:text" json:"response"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	// Relations
	Sources []QuerySource `gorm:"foreignKey:QueryID" json:"sources"`
}

func (Query) TableName() string {
	return "queries"
}

// QuerySource records a chunk that was consulted to answer a query.
type QuerySource struct {
	BaseModel
	QueryID    uuid.UUID `gorm:"type:uuid;not null;index" json:"query_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkID    string    `gorm:"size:100;not null" json:"chunk_id"`
}

func (QuerySource) TableName() string {
	return "query_sources"
}
