package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

type localRecord struct {
	Text      string        `json:"text"`
	Metadata  model.JSONMap `json:"metadata"`
	Embedding []float32     `json:"embedding"`
}

type localSnapshot struct {
	Collection     string                  `json:"collection"`
	EmbeddingModel string                  `json:"embedding_model"`
	Dimensions     int                     `json:"dimensions"`
	Records        map[string]*localRecord `json:"records"`
}

// LocalIndex keeps vectors in memory and writes a JSON snapshot to disk after
// every mutation. An empty path keeps the index in memory only.
type LocalIndex struct {
	mu       sync.RWMutex
	path     string
	embedder Embedder
	snap     localSnapshot
}

func NewLocalIndex(path, collection string, embedder Embedder) (*LocalIndex, error) {
	idx := &LocalIndex{
		path:     path,
		embedder: embedder,
		snap: localSnapshot{
			Collection:     collection,
			EmbeddingModel: embedder.Model(),
			Dimensions:     embedder.Dimensions(),
			Records:        map[string]*localRecord{},
		},
	}
	if path == "" {
		return idx, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vector snapshot: %w", err)
	}

	var snap localSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode vector snapshot %s: %w", path, err)
	}
	if snap.EmbeddingModel != embedder.Model() || snap.Dimensions != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: snapshot has %s/%d, configured %s/%d",
			ErrEmbeddingMismatch, snap.EmbeddingModel, snap.Dimensions, embedder.Model(), embedder.Dimensions())
	}
	if snap.Records == nil {
		snap.Records = map[string]*localRecord{}
	}
	snap.Collection = collection
	idx.snap = snap
	return idx, nil
}

func (i *LocalIndex) Upsert(ctx context.Context, ids, texts []string, metadatas []model.JSONMap) error {
	if err := validateUpsert(ids, texts, metadatas); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(ids) {
		return fmt.Errorf("upsert: got %d vectors for %d texts", len(vectors), len(ids))
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for n, id := range ids {
		i.snap.Records[id] = &localRecord{Text: texts[n], Metadata: metadatas[n], Embedding: vectors[n]}
	}
	return i.persistLocked()
}

func (i *LocalIndex) Search(ctx context.Context, query string, k int, filter map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	empty := len(i.snap.Records) == 0
	i.mu.RUnlock()
	if empty {
		return []SearchResult{}, nil
	}

	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("search: got %d query vectors", len(vectors))
	}
	q := vectors[0]

	i.mu.RLock()
	results := make([]SearchResult, 0, len(i.snap.Records))
	for id, rec := range i.snap.Records {
		if !matchesFilter(rec.Metadata, filter) || len(rec.Embedding) != len(q) {
			continue
		}
		results = append(results, SearchResult{
			ID:       id,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Distance: cosineDistance(q, rec.Embedding),
		})
	}
	i.mu.RUnlock()

	sort.Slice(results, func(a, b int) bool {
		if results[a].Distance == results[b].Distance {
			return results[a].ID < results[b].ID
		}
		return results[a].Distance < results[b].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (i *LocalIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for id, rec := range i.snap.Records {
		if MetaString(rec.Metadata, MetaDocumentID) == documentID {
			delete(i.snap.Records, id)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}
	return i.persistLocked()
}

// Len returns the number of records.
func (i *LocalIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.snap.Records)
}

// persistLocked writes the snapshot through a temp file and rename so a crash
// never leaves a truncated snapshot. Callers hold mu.
func (i *LocalIndex) persistLocked() error {
	if i.path == "" {
		return nil
	}

	data, err := json.Marshal(i.snap)
	if err != nil {
		return fmt.Errorf("encode vector snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return fmt.Errorf("create vector snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(i.path), filepath.Base(i.path)+".*")
	if err != nil {
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	return nil
}
