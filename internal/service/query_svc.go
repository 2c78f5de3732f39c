package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
)

type QueryService struct {
	queries *repository.QueryRepository
	engine  *QueryEngine
}

func NewQueryService(queries *repository.QueryRepository, engine *QueryEngine) *QueryService {
	return &QueryService{queries: queries, engine: engine}
}

func (s *QueryService) Ask(ctx context.Context, userID uuid.UUID, queryText string) *QueryResponse {
	return s.engine.ProcessQuery(ctx, queryText, userID)
}

func (s *QueryService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Query, int64, error) {
	return s.queries.ListByUser(ctx, userID, limit, offset)
}

func (s *QueryService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Query, error) {
	return s.queries.FindByUser(ctx, userID, id)
}
