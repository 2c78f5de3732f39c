package service

import (
	"context"
	"fmt"
	"mime"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

// TextExtractor turns a stored file into plain text. PDF pages are prefixed
// with "[Page n]\n" markers that the Chunker relies on.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// NormalizeContentType strips media type parameters ("text/plain; charset=utf-8").
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// IsSupportedContentType reports whether Extract can handle contentType.
func IsSupportedContentType(contentType string) bool {
	switch NormalizeContentType(contentType) {
	case model.ContentTypeText, model.ContentTypePDF:
		return true
	}
	return false
}

func (e *TextExtractor) Extract(ctx context.Context, filePath, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch NormalizeContentType(contentType) {
	case model.ContentTypeText:
		return e.extractText(filePath, contentType)
	case model.ContentTypePDF:
		return e.extractPDF(filePath, contentType)
	default:
		return "", &ExtractionError{Path: filePath, ContentType: contentType, Err: ErrUnsupportedContentKind}
	}
}

func (e *TextExtractor) extractText(filePath, contentType string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", &ExtractionError{Path: filePath, ContentType: contentType, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &ExtractionError{Path: filePath, ContentType: contentType, Err: fmt.Errorf("file is not valid UTF-8")}
	}
	return string(data), nil
}

func (e *TextExtractor) extractPDF(filePath, contentType string) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Path: filePath, ContentType: contentType, Err: fmt.Errorf("corrupt pdf: %v", r)}
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", &ExtractionError{Path: filePath, ContentType: contentType, Err: err}
	}
	defer f.Close()

	pages := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Path: filePath, ContentType: contentType, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages[i-1] = content
	}

	return formatPages(pages), nil
}

// formatPages renders page texts (index 0 is page 1) with page markers.
// Blank pages are skipped but keep their number.
func formatPages(pages []string) string {
	var b strings.Builder
	for i, content := range pages {
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Fprintf(&b, "[Page %d]\n%s\n\n", i+1, content)
	}
	return b.String()
}
