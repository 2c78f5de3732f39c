package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
)

// citingAnswerer answers with the first chunk's content and its citation.
type citingAnswerer struct {
	calls       int
	contextText string
	err         error
}

func (a *citingAnswerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	a.calls++
	a.contextText = contextText
	if a.err != nil {
		return "", a.err
	}

	var name, location, content string
	for _, line := range strings.Split(contextText, "\n") {
		switch {
		case name == "" && strings.HasPrefix(line, "Document: "):
			name = strings.TrimPrefix(line, "Document: ")
		case location == "" && strings.HasPrefix(line, "Location: "):
			location = strings.TrimPrefix(line, "Location: ")
		case content == "" && strings.HasPrefix(line, "Content: "):
			content = strings.TrimPrefix(line, "Content: ")
		}
	}
	return fmt.Sprintf("%s [%s - %s]", content, name, location), nil
}

// stubIndex returns canned results.
type stubIndex struct {
	results []SearchResult
	err     error
	k       int
}

func (s *stubIndex) Upsert(ctx context.Context, ids, texts []string, metadatas []model.JSONMap) error {
	return nil
}

func (s *stubIndex) Search(ctx context.Context, query string, k int, filter map[string]any) ([]SearchResult, error) {
	s.k = k
	return s.results, s.err
}

func (s *stubIndex) DeleteByDocument(ctx context.Context, documentID string) error { return nil }

func countQueries(t *testing.T, db *gorm.DB) (queries, sources int64) {
	t.Helper()
	require.NoError(t, db.Model(&model.Query{}).Count(&queries).Error)
	require.NoError(t, db.Model(&model.QuerySource{}).Count(&sources).Error)
	return queries, sources
}

func resultsFor(doc *model.Document, n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		page := i + 1
		chunk := &model.DocumentChunk{ChunkID: model.ChunkID(doc.ID, i), PageNumber: &page}
		out[i] = SearchResult{
			ID:       chunk.ChunkID,
			Text:     fmt.Sprintf("chunk number %d", i),
			Metadata: ChunkMetadata(doc, chunk),
			Distance: float64(i) / 10,
		}
	}
	return out
}

func TestAnswer_EmptyIndex(t *testing.T) {
	db := newTestDB(t)
	answerer := &citingAnswerer{}
	local, err := NewLocalIndex("", "document_chunks", newFakeEmbedder(32))
	require.NoError(t, err)

	engine := NewQueryEngine(local, answerer, repository.NewQueryRepository(db), 5)
	resp := engine.ProcessQuery(context.Background(), "What is anything?", uuid.New())

	assert.Equal(t, NoResultsAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.NoError(t, resp.Error)
	assert.Zero(t, answerer.calls, "no generation without chunks")

	var stored []model.Query
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, NoResultsAnswer, stored[0].Response)
}

func TestAnswer_TruncatesToTopK(t *testing.T) {
	db := newTestDB(t)
	doc := storeDocument(t, db, "seven.txt", "text/plain", "x")
	index := &stubIndex{results: resultsFor(doc, 7)}
	answerer := &citingAnswerer{}

	engine := NewQueryEngine(index, answerer, repository.NewQueryRepository(db), 5)
	resp := engine.Answer(context.Background(), "chunks?", doc.OwnerID)
	require.NoError(t, resp.Error)

	assert.Equal(t, 5, index.k)
	assert.Equal(t, 5, strings.Count(answerer.contextText, "Document: seven.txt"))
	assert.NotContains(t, answerer.contextText, "chunk number 5")
	assert.Len(t, resp.Sources, 5)

	_, sources := countQueries(t, db)
	assert.EqualValues(t, 5, sources)
}

func TestAnswer_DropsSourcesOfDeletedDocuments(t *testing.T) {
	db := newTestDB(t)
	live := storeDocument(t, db, "live.txt", "text/plain", "x")
	gone := storeDocument(t, db, "gone.txt", "text/plain", "x")
	require.NoError(t, repository.NewDocumentRepository(db).Delete(context.Background(), gone.ID))

	index := &stubIndex{results: append(resultsFor(live, 1), resultsFor(gone, 2)...)}
	engine := NewQueryEngine(index, &citingAnswerer{}, repository.NewQueryRepository(db), 5)

	resp := engine.Answer(context.Background(), "question", live.OwnerID)
	require.NoError(t, resp.Error)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "live.txt", resp.Sources[0].DocumentName)

	queries, sources := countQueries(t, db)
	assert.EqualValues(t, 1, queries)
	assert.EqualValues(t, 1, sources)
}

func TestAnswer_FormatsLocationAndTruncatesPreview(t *testing.T) {
	db := newTestDB(t)
	doc := storeDocument(t, db, "long.txt", "text/plain", "x")
	long := strings.Repeat("é", 250)
	index := &stubIndex{results: []SearchResult{
		{ID: "a", Text: long, Metadata: model.JSONMap{MetaDocumentID: doc.ID.String(), MetaDocumentName: "long.txt", MetaPageNumber: float64(3), MetaSection: "Intro"}},
		{ID: "b", Text: "short", Metadata: model.JSONMap{MetaDocumentID: doc.ID.String(), MetaDocumentName: "long.txt", MetaPageNumber: nil, MetaSection: ""}},
	}}
	answerer := &citingAnswerer{}

	resp := NewQueryEngine(index, answerer, repository.NewQueryRepository(db), 5).Answer(context.Background(), "q", doc.OwnerID)
	require.NoError(t, resp.Error)

	want := "Document: long.txt\nLocation: Page 3 Section: Intro\nContent: " + long + "\n\n" +
		"\n" +
		"Document: long.txt\nContent: short\n\n"
	assert.Equal(t, want, answerer.contextText)

	require.Len(t, resp.Sources, 2)
	assert.Equal(t, string([]rune(long)[:200])+"...", resp.Sources[0].Content)
	assert.Equal(t, 3, *resp.Sources[0].PageNumber)
	assert.Equal(t, "Intro", resp.Sources[0].Section)
	assert.Equal(t, "short", resp.Sources[1].Content)
	assert.Nil(t, resp.Sources[1].PageNumber)

	var responses []string
	require.NoError(t, db.Model(&model.Query{}).Pluck("response", &responses).Error)
	assert.Equal(t, []string{resp.Answer}, responses)
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	db := newTestDB(t)
	index := &stubIndex{err: errors.New("connection refused")}
	answerer := &citingAnswerer{}

	resp := NewQueryEngine(index, answerer, repository.NewQueryRepository(db), 5).Answer(context.Background(), "q", uuid.New())

	assert.Equal(t, ErrorAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	var retrievalErr *RetrievalError
	assert.True(t, errors.As(resp.Error, &retrievalErr))
	assert.Zero(t, answerer.calls)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	db := newTestDB(t)
	doc := storeDocument(t, db, "doc.txt", "text/plain", "x")
	index := &stubIndex{results: resultsFor(doc, 2)}
	answerer := &citingAnswerer{err: errors.New("model overloaded")}

	resp := NewQueryEngine(index, answerer, repository.NewQueryRepository(db), 5).Answer(context.Background(), "q", doc.OwnerID)

	assert.Equal(t, ErrorAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	require.Error(t, resp.Error)
	assert.Contains(t, resp.Error.Error(), "model overloaded")

	queries, sources := countQueries(t, db)
	assert.EqualValues(t, 1, queries)
	assert.Zero(t, sources)
}

func TestEndToEnd_TwoPageDocumentCitesFilename(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil)

	content := "[Page 1]\nPhotosynthesis converts light energy into chemical energy in plants.\n\n" +
		"[Page 2]\nMitochondria release stored energy through cellular respiration.\n\n"
	doc := storeDocument(t, f.db, "biology.txt", "text/plain", content)

	require.True(t, f.processor.ProcessDocument(ctx, doc))
	assert.Equal(t, 100, doc.ProcessingProgress)

	engine := NewQueryEngine(f.index, &citingAnswerer{}, repository.NewQueryRepository(f.db), 5)
	resp := engine.Answer(ctx, "What is photosynthesis?", doc.OwnerID)
	require.NoError(t, resp.Error)

	assert.Contains(t, resp.Answer, "[biology.txt - Page 1]")
	assert.Contains(t, resp.Answer, "Photosynthesis converts light energy")
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "biology.txt", resp.Sources[0].DocumentName)
	assert.Equal(t, 1, *resp.Sources[0].PageNumber)
	assert.Equal(t, model.ChunkID(doc.ID, 0), resp.Sources[0].ChunkID)

	stored, err := repository.NewQueryRepository(f.db).FindByUser(ctx, doc.OwnerID, resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, resp.Answer, stored.Response)
	assert.Len(t, stored.Sources, len(resp.Sources))
}
