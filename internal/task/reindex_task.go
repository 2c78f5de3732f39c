package task

import (
	"context"
	"log/slog"
)

// Reindexer pushes chunks of completed but unindexed documents into the
// vector index and reports how many documents it indexed.
type Reindexer interface {
	ReindexPending(ctx context.Context) (int, error)
}

// ReindexTask retries vector indexing for documents whose processing run
// completed while the index was unavailable.
type ReindexTask struct {
	reindexer Reindexer
	logger    *slog.Logger
}

func NewReindexTask(reindexer Reindexer) *ReindexTask {
	return &ReindexTask{
		reindexer: reindexer,
		logger:    slog.Default().With("component", "reindex_task"),
	}
}

func (t *ReindexTask) Name() string {
	return "vector_reindex"
}

func (t *ReindexTask) Run(ctx context.Context) error {
	n, err := t.reindexer.ReindexPending(ctx)
	if n > 0 {
		t.logger.Info("documents reindexed", "count", n)
	}
	return err
}
