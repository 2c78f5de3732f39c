package model

import (
	"github.com/pgvector/pgvector-go"
)

// VectorCollection binds a named vector collection to the embedding
// configuration it was first populated with.
type VectorCollection struct {
	BaseModel
	Name           string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	EmbeddingModel string `gorm:"size:100;not null" json:"embedding_model"`
	Dimensions     int    `gorm:"not null" json:"dimensions"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}

// VectorRecord is the pgvector row for one chunk, keyed by chunk id.
type VectorRecord struct {
	ID         string          `gorm:"primaryKey;size:100" json:"id"`
	Collection string          `gorm:"size:255;not null;index" json:"collection"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:vector" json:"-"`
	Metadata   JSONMap         `gorm:"type:jsonb" json:"metadata"`
}

func (VectorRecord) TableName() string {
	return "vector_records"
}
