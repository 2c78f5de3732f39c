package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

const pgvectorUpsertBatch = 100

// PgvectorIndex stores vector records in postgres and searches them by cosine
// distance with the pgvector <=> operator.
type PgvectorIndex struct {
	db         *gorm.DB
	embedder   Embedder
	collection string
}

// NewPgvectorIndex binds collection to the embedder's configuration, creating
// the binding on first use.
func NewPgvectorIndex(ctx context.Context, db *gorm.DB, collection string, embedder Embedder) (*PgvectorIndex, error) {
	var binding model.VectorCollection
	err := db.WithContext(ctx).Where("name = ?", collection).First(&binding).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		binding = model.VectorCollection{
			Name:           collection,
			EmbeddingModel: embedder.Model(),
			Dimensions:     embedder.Dimensions(),
		}
		if err := db.WithContext(ctx).Create(&binding).Error; err != nil {
			return nil, fmt.Errorf("create vector collection %s: %w", collection, err)
		}
	case err != nil:
		return nil, fmt.Errorf("load vector collection %s: %w", collection, err)
	case binding.EmbeddingModel != embedder.Model() || binding.Dimensions != embedder.Dimensions():
		return nil, fmt.Errorf("%w: collection %s has %s/%d, configured %s/%d", ErrEmbeddingMismatch,
			collection, binding.EmbeddingModel, binding.Dimensions, embedder.Model(), embedder.Dimensions())
	}

	return &PgvectorIndex{db: db, embedder: embedder, collection: collection}, nil
}

// Upsert embeds and writes records batch by batch. A failed batch leaves the
// earlier batches applied.
func (i *PgvectorIndex) Upsert(ctx context.Context, ids, texts []string, metadatas []model.JSONMap) error {
	if err := validateUpsert(ids, texts, metadatas); err != nil {
		return err
	}

	for start := 0; start < len(ids); start += pgvectorUpsertBatch {
		end := min(start+pgvectorUpsertBatch, len(ids))

		vectors, err := i.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return err
		}
		if len(vectors) != end-start {
			return fmt.Errorf("upsert: got %d vectors for %d texts", len(vectors), end-start)
		}

		records := make([]model.VectorRecord, 0, end-start)
		for n := start; n < end; n++ {
			records = append(records, model.VectorRecord{
				ID:         ids[n],
				Collection: i.collection,
				Content:    texts[n],
				Embedding:  pgvector.NewVector(vectors[n-start]),
				Metadata:   metadatas[n],
			})
		}

		err = i.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(&records).Error
		if err != nil {
			return fmt.Errorf("upsert vector records %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (i *PgvectorIndex) Search(ctx context.Context, query string, k int, filter map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("search: got %d query vectors", len(vectors))
	}

	var rows []struct {
		model.VectorRecord
		Distance float64 `gorm:"column:distance"`
	}

	q := i.db.WithContext(ctx).
		Model(&model.VectorRecord{}).
		Select("*, embedding <=> ? AS distance", pgvector.NewVector(vectors[0])).
		Where("collection = ?", i.collection)

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		q = q.Where("metadata->>? = ?", key, fmt.Sprint(filter[key]))
	}

	if err := q.Order("distance ASC").Limit(k).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, SearchResult{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: r.Metadata,
			Distance: r.Distance,
		})
	}
	return results, nil
}

func (i *PgvectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return i.db.WithContext(ctx).
		Where("collection = ? AND metadata->>? = ?", i.collection, MetaDocumentID, documentID).
		Delete(&model.VectorRecord{}).Error
}
