package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

type QueryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) WithTx(tx *gorm.DB) *QueryRepository {
	return &QueryRepository{db: tx}
}

// Transaction runs fn with repositories bound to one transaction.
func (r *QueryRepository) Transaction(ctx context.Context, fn func(queries *QueryRepository, docs *DocumentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx), NewDocumentRepository(tx))
	})
}

func (r *QueryRepository) Create(ctx context.Context, q *model.Query) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *QueryRepository) CreateSource(ctx context.Context, src *model.QuerySource) error {
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *QueryRepository) FindByUser(ctx context.Context, userID, id uuid.UUID) (*model.Query, error) {
	var q model.Query
	err := r.db.WithContext(ctx).
		Preload("Sources").
		Where("id = ? AND user_id = ?", id, userID).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QueryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Query, int64, error) {
	var queries []model.Query
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Query{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Sources").Order("created_at DESC").Limit(limit).Offset(offset).Find(&queries).Error
	return queries, total, err
}

func (r *QueryRepository) CountSources(ctx context.Context, queryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.QuerySource{}).
		Where("query_id = ?", queryID).
		Count(&count).Error
	return count, err
}
