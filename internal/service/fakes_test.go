package service

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// fakeEmbedder hashes words into buckets, so texts sharing words are close
// under cosine distance.
type fakeEmbedder struct {
	mu    sync.Mutex
	dims  int
	model string
	count int
	err   error
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims, model: "fake-embedding"}
}

func (f *fakeEmbedder) Model() string   { return f.model }
func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.count += len(texts)

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) embedded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.dims)
	v[0] = 0.01
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32())%f.dims]++
	}
	return v
}
