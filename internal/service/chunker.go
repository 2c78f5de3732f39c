package service

import (
	"strconv"
	"strings"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/pkg/textsplit"
)

const pageMarker = "[Page "

// Chunk is one split of extracted text with its provenance.
type Chunk struct {
	Text       string
	PageNumber *int
	Section    string
}

// Chunker splits extracted text into overlapping chunks, attributing each
// chunk to the page marker it was found under.
type Chunker struct {
	splitter *textsplit.Splitter
}

func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplit.New(
			textsplit.WithChunkSize(chunkSize),
			textsplit.WithOverlap(overlap),
		),
	}
}

func (c *Chunker) Split(text string) (chunks []Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = &ChunkingError{Err: panicError(r)}
		}
	}()

	if !strings.Contains(text, pageMarker) {
		for _, piece := range c.splitter.SplitText(text) {
			chunks = append(chunks, Chunk{Text: piece})
		}
		return chunks, nil
	}

	for _, page := range splitPages(text) {
		for _, piece := range c.splitter.SplitText(page.content) {
			n := page.number
			chunks = append(chunks, Chunk{Text: piece, PageNumber: &n})
		}
	}
	return chunks, nil
}

type pageSegment struct {
	number  int
	content string
}

// splitPages cuts text on "[Page n]" markers. Text before the first marker is
// dropped, as is any segment with no closing bracket. A marker whose number
// does not parse takes the next value of a fallback counter starting at 1, and
// the whole segment becomes the page content.
func splitPages(text string) []pageSegment {
	var pages []pageSegment
	fallback := 1

	segments := strings.Split(text, pageMarker)
	for _, segment := range segments[1:] {
		parts := strings.SplitN(segment, "]", 2)
		if len(parts) < 2 {
			continue
		}

		var number int
		var content string
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			number, content = n, parts[1]
		} else {
			number, content = fallback, segment
			fallback++
		}

		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, pageSegment{number: number, content: content})
	}
	return pages
}
