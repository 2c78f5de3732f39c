package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

// Metadata keys stored with every vector record.
const (
	MetaDocumentID   = "document_id"
	MetaDocumentName = "document_name"
	MetaChunkID      = "chunk_id"
	MetaPageNumber   = "page_number"
	MetaSection      = "section"
)

// VectorIndex is a collection of embedded texts keyed by id. Implementations
// embed texts themselves and are bound to one embedding configuration.
type VectorIndex interface {
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, ids, texts []string, metadatas []model.JSONMap) error
	// Search returns up to k records ordered by ascending distance. Filter
	// entries must equal the record's metadata values.
	Search(ctx context.Context, query string, k int, filter map[string]any) ([]SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

type SearchResult struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata model.JSONMap `json:"metadata"`
	Distance float64       `json:"distance"`
}

// ChunkMetadata builds the metadata bag of a chunk's vector record.
func ChunkMetadata(doc *model.Document, chunk *model.DocumentChunk) model.JSONMap {
	meta := model.JSONMap{
		MetaDocumentID:   doc.ID.String(),
		MetaDocumentName: doc.Filename,
		MetaChunkID:      chunk.ChunkID,
		MetaPageNumber:   nil,
		MetaSection:      chunk.Section,
	}
	if chunk.PageNumber != nil {
		meta[MetaPageNumber] = *chunk.PageNumber
	}
	return meta
}

// MetaString returns a metadata value as a string, "" when absent.
func MetaString(meta model.JSONMap, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// MetaPage reads page_number, which JSON round trips turn into float64.
func MetaPage(meta model.JSONMap) *int {
	var n int
	switch v := meta[MetaPageNumber].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func validateUpsert(ids, texts []string, metadatas []model.JSONMap) error {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("upsert: %d ids, %d texts, %d metadatas", len(ids), len(texts), len(metadatas))
	}
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func matchesFilter(meta model.JSONMap, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
