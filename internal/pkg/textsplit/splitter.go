// Package textsplit splits text into size-bounded, overlapping spans.
//
// Splitting is recursive: the text is cut on the first separator that occurs
// in it, and any piece still longer than the chunk size is cut again with the
// next separator, down to raw rune cuts. Pieces are then merged greedily into
// chunks, carrying up to Overlap characters of trailing pieces into the next
// chunk. Separators stay attached to the piece they end, so every chunk is an
// exact substring of the input and consecutive chunks share whole pieces.
//
// Lengths are measured in runes.
package textsplit

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators prefers paragraph, then line, then sentence, then word
// boundaries. The empty separator means a raw rune cut.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Span is one chunk of the input. Text == input[Start:End], offsets in bytes.
type Span struct {
	Text  string
	Start int
	End   int
}

type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

type piece struct {
	start, end int
	runes      int
}

// Split returns the chunks of text in reading order. Empty input yields no chunks.
func (s *Splitter) Split(text string) []Span {
	if text == "" {
		return nil
	}

	var pieces []piece
	s.splitRecursive(text, 0, s.separators, &pieces)
	return s.merge(text, pieces)
}

// SplitText is Split without offsets.
func (s *Splitter) SplitText(text string) []string {
	spans := s.Split(text)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}

func (s *Splitter) splitRecursive(text string, offset int, separators []string, out *[]piece) {
	n := utf8.RuneCountInString(text)
	if n <= s.chunkSize {
		*out = append(*out, piece{start: offset, end: offset + len(text), runes: n})
		return
	}

	sep, rest := pickSeparator(text, separators)
	if sep == "" {
		s.cutRunes(text, offset, out)
		return
	}

	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], sep)
		end := len(text)
		if i >= 0 {
			end = pos + i + len(sep)
		}
		part := text[pos:end]
		if utf8.RuneCountInString(part) <= s.chunkSize {
			*out = append(*out, piece{start: offset + pos, end: offset + end, runes: utf8.RuneCountInString(part)})
		} else {
			s.splitRecursive(part, offset+pos, rest, out)
		}
		pos = end
	}
}

// pickSeparator returns the first separator present in text and the
// separators to fall back to for oversized parts.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

func (s *Splitter) cutRunes(text string, offset int, out *[]piece) {
	start, count := 0, 0
	for i := range text {
		if count == s.chunkSize {
			*out = append(*out, piece{start: offset + start, end: offset + i, runes: count})
			start, count = i, 0
		}
		count++
	}
	if count > 0 {
		*out = append(*out, piece{start: offset + start, end: offset + len(text), runes: count})
	}
}

func (s *Splitter) merge(text string, pieces []piece) []Span {
	var spans []Span
	var window []piece
	total := 0

	emit := func() {
		start, end := window[0].start, window[len(window)-1].end
		spans = append(spans, Span{Text: text[start:end], Start: start, End: end})
	}

	for _, p := range pieces {
		if len(window) > 0 && total+p.runes > s.chunkSize {
			emit()
			for len(window) > 0 && (total > s.overlap || total+p.runes > s.chunkSize) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.runes
	}
	if len(window) > 0 {
		emit()
	}
	return spans
}
