package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
)

const (
	NoResultsAnswer = "I couldn't find any relevant information in your documents to answer this query."
	ErrorAnswer     = "I encountered an error while processing your query. Please try again later."

	DefaultTopK       = 5
	sourcePreviewSize = 200
)

// Answerer produces an answer grounded in the formatted chunks.
type Answerer interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

type Source struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	ChunkID      string    `json:"chunk_id"`
	PageNumber   *int      `json:"page_number"`
	Section      string    `json:"section"`
	Content      string    `json:"content"`
}

type QueryResponse struct {
	QueryID uuid.UUID `json:"query_id"`
	Answer  string    `json:"answer"`
	Sources []Source  `json:"sources"`
	// Error is the internal cause behind ErrorAnswer. It is never serialized.
	Error error `json:"-"`
}

// QueryEngine answers questions from the vector index and records every
// query with the sources it cited.
type QueryEngine struct {
	index    VectorIndex
	answerer Answerer
	queries  *repository.QueryRepository
	topK     int
	logger   *slog.Logger
}

func NewQueryEngine(index VectorIndex, answerer Answerer, queries *repository.QueryRepository, topK int) *QueryEngine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryEngine{
		index:    index,
		answerer: answerer,
		queries:  queries,
		topK:     topK,
		logger:   slog.Default().With("service", "query_engine"),
	}
}

// ProcessQuery is Answer.
func (e *QueryEngine) ProcessQuery(ctx context.Context, queryText string, userID uuid.UUID) *QueryResponse {
	return e.Answer(ctx, queryText, userID)
}

// Answer never fails: retrieval, generation and persistence errors turn into
// ErrorAnswer with the cause attached.
func (e *QueryEngine) Answer(ctx context.Context, queryText string, userID uuid.UUID) *QueryResponse {
	results, err := e.retrieve(ctx, queryText)
	if err != nil {
		return e.failed(ctx, queryText, userID, err)
	}

	if len(results) == 0 {
		resp := &QueryResponse{Answer: NoResultsAnswer, Sources: []Source{}}
		q := &model.Query{QueryText: queryText, Response: NoResultsAnswer, UserID: userID}
		if err := e.queries.Create(ctx, q); err != nil {
			e.logger.Error("Failed to record query", "error", err)
		} else {
			resp.QueryID = q.ID
		}
		return resp
	}

	answer, err := e.generate(ctx, FormatChunks(results), queryText)
	if err != nil {
		return e.failed(ctx, queryText, userID, err)
	}

	q, sources, err := e.persist(ctx, queryText, answer, userID, results)
	if err != nil {
		return e.failed(ctx, queryText, userID, fmt.Errorf("persist query: %w", err))
	}

	e.logger.Info("Query answered", "query_id", q.ID, "retrieved", len(results), "sources", len(sources))
	return &QueryResponse{QueryID: q.ID, Answer: answer, Sources: sources}
}

func (e *QueryEngine) retrieve(ctx context.Context, queryText string) (results []SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RetrievalError{Err: panicError(r)}
		}
	}()

	results, err = e.index.Search(ctx, queryText, e.topK, nil)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}
	if len(results) > e.topK {
		results = results[:e.topK]
	}
	return results, nil
}

func (e *QueryEngine) generate(ctx context.Context, contextText, queryText string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return e.answerer.Answer(ctx, contextText, queryText)
}

// persist stores the query and one source per result whose document is still
// live, in one transaction.
func (e *QueryEngine) persist(ctx context.Context, queryText, answer string, userID uuid.UUID, results []SearchResult) (*model.Query, []Source, error) {
	q := &model.Query{QueryText: queryText, Response: answer, UserID: userID}
	var sources []Source

	err := e.queries.Transaction(ctx, func(queries *repository.QueryRepository, docs *repository.DocumentRepository) error {
		sources = make([]Source, 0, len(results))
		if err := queries.Create(ctx, q); err != nil {
			return err
		}

		for _, r := range results {
			docID, err := uuid.Parse(MetaString(r.Metadata, MetaDocumentID))
			if err != nil {
				continue
			}
			doc, err := docs.FindByID(ctx, docID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			if err := queries.CreateSource(ctx, &model.QuerySource{
				QueryID:    q.ID,
				DocumentID: doc.ID,
				ChunkID:    r.ID,
			}); err != nil {
				return err
			}

			sources = append(sources, Source{
				DocumentID:   doc.ID,
				DocumentName: doc.Filename,
				ChunkID:      r.ID,
				PageNumber:   MetaPage(r.Metadata),
				Section:      MetaString(r.Metadata, MetaSection),
				Content:      preview(r.Text),
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return q, sources, nil
}

// failed records the query with ErrorAnswer on a best-effort basis.
func (e *QueryEngine) failed(ctx context.Context, queryText string, userID uuid.UUID, cause error) *QueryResponse {
	e.logger.Error("Query failed", "error", cause)

	resp := &QueryResponse{Answer: ErrorAnswer, Sources: []Source{}, Error: cause}
	q := &model.Query{QueryText: queryText, Response: ErrorAnswer, UserID: userID}
	if err := e.queries.Create(context.WithoutCancel(ctx), q); err != nil {
		e.logger.Error("Failed to record failed query", "error", err)
	} else {
		resp.QueryID = q.ID
	}
	return resp
}

// FormatChunks renders retrieved chunks for the prompt in retrieval order.
func FormatChunks(results []SearchResult) string {
	formatted := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "Document: %s\n", MetaString(r.Metadata, MetaDocumentName))
		if location := chunkLocation(r.Metadata); location != "" {
			fmt.Fprintf(&b, "Location: %s\n", location)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", r.Text)
		formatted = append(formatted, b.String())
	}
	return strings.Join(formatted, "\n")
}

func chunkLocation(meta model.JSONMap) string {
	var page, section string
	if p := MetaPage(meta); p != nil && *p != 0 {
		page = fmt.Sprintf("Page %d", *p)
	}
	if s := MetaString(meta, MetaSection); s != "" {
		section = "Section: " + s
	}
	return strings.TrimSpace(page + " " + section)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= sourcePreviewSize {
		return text
	}
	return string(runes[:sourcePreviewSize]) + "..."
}
