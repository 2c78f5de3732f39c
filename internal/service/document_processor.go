package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
)

// Progress checkpoints of a processing run.
const (
	progressStarted   = 5
	progressExtracted = 30
	progressSplit     = 50
	progressPersisted = 75
	progressIndexing  = 80
	progressCompleted = 100
)

const reindexBatch = 100

type Extractor interface {
	Extract(ctx context.Context, filePath, contentType string) (string, error)
}

// IndexOutcome is the result of the indexing step. A skipped index never
// fails a processing run.
type IndexOutcome struct {
	Indexed bool
	Reason  string
}

func Indexed() IndexOutcome { return IndexOutcome{Indexed: true} }

func IndexSkipped(reason string) IndexOutcome {
	return IndexOutcome{Reason: reason}
}

// DocumentProcessor runs extraction, chunking, chunk persistence and
// indexing for one document, persisting progress after every step.
type DocumentProcessor struct {
	docs      *repository.DocumentRepository
	chunks    *repository.ChunkRepository
	extractor Extractor
	chunker   *Chunker
	index     VectorIndex
	logger    *slog.Logger
}

func NewDocumentProcessor(
	docs *repository.DocumentRepository,
	chunks *repository.ChunkRepository,
	extractor Extractor,
	chunker *Chunker,
	index VectorIndex,
) *DocumentProcessor {
	return &DocumentProcessor{
		docs:      docs,
		chunks:    chunks,
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		logger:    slog.Default().With("service", "document_processor"),
	}
}

// ProcessDocument mutates doc and its stored row as the run advances. It
// returns false when the run ended in the error state; in that case no chunk
// rows of the run remain.
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, doc *model.Document) (ok bool) {
	logger := p.logger.With("document_id", doc.ID, "filename", doc.Filename)

	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, logger, doc, panicError(r))
			ok = false
		}
	}()

	doc.ProcessingStatus = model.DocumentStatusProcessing
	doc.ProcessingProgress = progressStarted
	doc.ErrorMessage = ""
	if err := p.docs.UpdateFields(ctx, doc, map[string]interface{}{
		"processing_status":   doc.ProcessingStatus,
		"processing_progress": doc.ProcessingProgress,
		"error_message":       "",
	}); err != nil {
		p.fail(ctx, logger, doc, fmt.Errorf("mark processing: %w", err))
		return false
	}

	text, err := p.extractor.Extract(ctx, doc.FilePath, doc.ContentType)
	if err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}
	if strings.TrimSpace(text) == "" {
		p.fail(ctx, logger, doc, &ExtractionError{Path: doc.FilePath, ContentType: doc.ContentType, Err: ErrNoExtractableText})
		return false
	}
	if err := p.setProgress(ctx, doc, progressExtracted); err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}

	pieces, err := p.chunker.Split(text)
	if err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}
	if len(pieces) == 0 {
		p.fail(ctx, logger, doc, &ChunkingError{Err: ErrNoExtractableText})
		return false
	}
	if err := p.setProgress(ctx, doc, progressSplit); err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}

	rows, err := p.persistChunks(ctx, doc, pieces)
	if err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}
	logger.Info("Stored document chunks", "chunks", len(rows))

	if err := p.setProgress(ctx, doc, progressIndexing); err != nil {
		p.fail(ctx, logger, doc, err)
		return false
	}

	outcome := p.indexChunks(ctx, doc, rows)
	if !outcome.Indexed {
		logger.Warn("Document indexing skipped", "reason", outcome.Reason)
	}

	now := time.Now()
	doc.ProcessingStatus = model.DocumentStatusCompleted
	doc.ProcessingProgress = progressCompleted
	doc.Processed = true
	doc.Indexed = outcome.Indexed
	doc.ProcessedAt = &now
	if err := p.docs.UpdateFields(ctx, doc, map[string]interface{}{
		"processing_status":   doc.ProcessingStatus,
		"processing_progress": doc.ProcessingProgress,
		"processed":           true,
		"indexed":             outcome.Indexed,
		"processed_at":        now,
	}); err != nil {
		p.fail(ctx, logger, doc, fmt.Errorf("mark completed: %w", err))
		return false
	}

	logger.Info("Document processed", "chunks", len(rows), "indexed", outcome.Indexed)
	return true
}

// persistChunks writes chunk rows one by one, moving progress linearly from
// 50 to 75.
func (p *DocumentProcessor) persistChunks(ctx context.Context, doc *model.Document, pieces []Chunk) ([]model.DocumentChunk, error) {
	rows := make([]model.DocumentChunk, 0, len(pieces))
	span := progressPersisted - progressSplit

	for i, piece := range pieces {
		row := model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkID:    model.ChunkID(doc.ID, i),
			ChunkIndex: i,
			Content:    piece.Text,
			PageNumber: piece.PageNumber,
			Section:    piece.Section,
		}
		if err := p.chunks.Create(ctx, &row); err != nil {
			return nil, fmt.Errorf("store chunk %d: %w", i, err)
		}
		rows = append(rows, row)

		if err := p.setProgress(ctx, doc, progressSplit+(i+1)*span/len(pieces)); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (p *DocumentProcessor) indexChunks(ctx context.Context, doc *model.Document, rows []model.DocumentChunk) (outcome IndexOutcome) {
	if p.index == nil {
		return IndexSkipped("vector index not configured")
	}
	if len(rows) == 0 {
		return Indexed()
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = IndexSkipped((&IndexUnavailableError{Err: panicError(r)}).Error())
		}
	}()

	ids := make([]string, len(rows))
	texts := make([]string, len(rows))
	metas := make([]model.JSONMap, len(rows))
	for i := range rows {
		ids[i] = rows[i].ChunkID
		texts[i] = rows[i].Content
		metas[i] = ChunkMetadata(doc, &rows[i])
	}

	if err := p.index.Upsert(ctx, ids, texts, metas); err != nil {
		return IndexSkipped((&IndexUnavailableError{Err: err}).Error())
	}
	return Indexed()
}

// setProgress persists a new progress value. Values that do not increase are
// not written.
func (p *DocumentProcessor) setProgress(ctx context.Context, doc *model.Document, progress int) error {
	if progress <= doc.ProcessingProgress {
		return nil
	}
	doc.ProcessingProgress = progress
	if err := p.docs.UpdateFields(ctx, doc, map[string]interface{}{"processing_progress": progress}); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// fail removes the run's chunk rows and moves the document to the error
// state. Progress is left at its last value.
func (p *DocumentProcessor) fail(ctx context.Context, logger *slog.Logger, doc *model.Document, cause error) {
	ctx = context.WithoutCancel(ctx)
	logger.Error("Document processing failed", "error", cause, "progress", doc.ProcessingProgress)

	if err := p.chunks.PurgeByDocumentID(ctx, doc.ID); err != nil {
		logger.Error("Failed to remove chunks of failed run", "error", err)
	}

	doc.ProcessingStatus = model.DocumentStatusError
	doc.Processed = false
	doc.ErrorMessage = cause.Error()
	if err := p.docs.UpdateFields(ctx, doc, map[string]interface{}{
		"processing_status": doc.ProcessingStatus,
		"processed":         false,
		"error_message":     doc.ErrorMessage,
	}); err != nil {
		logger.Error("Failed to record processing error", "error", err)
	}
}

// Reindex upserts the stored chunks of doc into the vector index and records
// the outcome on the document.
func (p *DocumentProcessor) Reindex(ctx context.Context, doc *model.Document) IndexOutcome {
	rows, err := p.chunks.FindByDocumentID(ctx, doc.ID)
	if err != nil {
		return IndexSkipped(fmt.Sprintf("load chunks: %v", err))
	}

	outcome := p.indexChunks(ctx, doc, rows)
	if !outcome.Indexed {
		return outcome
	}

	doc.Indexed = true
	if err := p.docs.UpdateFields(ctx, doc, map[string]interface{}{"indexed": true}); err != nil {
		p.logger.Error("Failed to record reindex", "document_id", doc.ID, "error", err)
	}
	return outcome
}

// ReindexPending retries indexing for completed documents whose indexing
// step was skipped. It returns the number of documents indexed.
func (p *DocumentProcessor) ReindexPending(ctx context.Context) (int, error) {
	docs, err := p.docs.FindUnindexed(ctx, reindexBatch)
	if err != nil {
		return 0, fmt.Errorf("find unindexed documents: %w", err)
	}

	indexed := 0
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		outcome := p.Reindex(ctx, &docs[i])
		if outcome.Indexed {
			indexed++
			continue
		}
		p.logger.Warn("Reindex skipped", "document_id", docs[i].ID, "reason", outcome.Reason)
	}
	return indexed, nil
}
