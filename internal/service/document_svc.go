package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
)

// DocumentStatus is the polled view of a processing run.
type DocumentStatus struct {
	ID                 uuid.UUID            `json:"id"`
	Filename           string               `json:"filename"`
	Processed          bool                 `json:"processed"`
	ProcessingProgress int                  `json:"processing_progress"`
	ProcessingStatus   model.DocumentStatus `json:"processing_status"`
	ErrorMessage       string               `json:"error_message,omitempty"`
	Indexed            bool                 `json:"indexed"`
}

type DocumentService struct {
	docs      *repository.DocumentRepository
	chunks    *repository.ChunkRepository
	index     VectorIndex
	processor *DocumentProcessor
	cfg       *config.Config
	logger    *slog.Logger
}

func NewDocumentService(
	docs *repository.DocumentRepository,
	chunks *repository.ChunkRepository,
	index VectorIndex,
	processor *DocumentProcessor,
	cfg *config.Config,
) *DocumentService {
	return &DocumentService{
		docs:      docs,
		chunks:    chunks,
		index:     index,
		processor: processor,
		cfg:       cfg,
		logger:    slog.Default().With("service", "document"),
	}
}

func (s *DocumentService) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Document, int64, error) {
	return s.docs.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *DocumentService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Document, error) {
	return s.docs.FindByOwner(ctx, ownerID, id)
}

func (s *DocumentService) Status(ctx context.Context, ownerID, id uuid.UUID) (*DocumentStatus, error) {
	doc, err := s.docs.FindByOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return &DocumentStatus{
		ID:                 doc.ID,
		Filename:           doc.Filename,
		Processed:          doc.Processed,
		ProcessingProgress: doc.ProcessingProgress,
		ProcessingStatus:   doc.ProcessingStatus,
		ErrorMessage:       doc.ErrorMessage,
		Indexed:            doc.Indexed,
	}, nil
}

func (s *DocumentService) Chunks(ctx context.Context, ownerID, id uuid.UUID) ([]model.DocumentChunk, error) {
	if _, err := s.docs.FindByOwner(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.chunks.FindByDocumentID(ctx, id)
}

// Upload stores the file and creates its pending document. Processing is a
// separate step, see Process.
func (s *DocumentService) Upload(ctx context.Context, ownerID uuid.UUID, filename, contentType string, size int64, reader io.Reader) (*model.Document, error) {
	contentType = NormalizeContentType(contentType)
	if !IsSupportedContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentKind, contentType)
	}
	if s.cfg.MaxUploadSize > 0 && size > s.cfg.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		return nil, fmt.Errorf("invalid filename")
	}

	// Generate unique storage path
	docID := uuid.New()
	storagePath := filepath.Join(s.cfg.UploadFolder, ownerID.String(), docID.String(), filename)

	if err := os.MkdirAll(filepath.Dir(storagePath), 0o755); err != nil {
		return nil, err
	}

	written, err := s.writeFile(storagePath, reader)
	if err != nil {
		os.Remove(storagePath)
		return nil, err
	}

	doc := &model.Document{
		Filename:         filename,
		FilePath:         storagePath,
		ContentType:      contentType,
		Size:             written,
		OwnerID:          ownerID,
		ProcessingStatus: model.DocumentStatusPending,
	}
	doc.ID = docID

	if err := s.docs.Create(ctx, doc); err != nil {
		os.Remove(storagePath)
		return nil, err
	}

	s.logger.Info("Document uploaded", "document_id", doc.ID, "owner_id", ownerID, "size", written)
	return doc, nil
}

func (s *DocumentService) writeFile(path string, reader io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	src := reader
	if s.cfg.MaxUploadSize > 0 {
		src = io.LimitReader(reader, s.cfg.MaxUploadSize+1)
	}
	written, err := io.Copy(dst, src)
	if err != nil {
		return 0, err
	}
	if s.cfg.MaxUploadSize > 0 && written > s.cfg.MaxUploadSize {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxUploadSize)
	}
	return written, nil
}

// Process runs the processing pipeline for doc synchronously.
func (s *DocumentService) Process(ctx context.Context, doc *model.Document) bool {
	return s.processor.ProcessDocument(ctx, doc)
}

// Delete soft-deletes the document and its chunks, then removes its vectors
// and stored file. Vector and file removal failures are logged only.
func (s *DocumentService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	doc, err := s.docs.FindByOwner(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.chunks.DeleteByDocumentID(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, id.String()); err != nil {
			s.logger.Warn("Failed to remove document vectors", "document_id", id, "error", err)
		}
	}

	// Delete physical file and its per-document directory if now empty
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove stored file", "document_id", id, "error", err)
		}
		os.Remove(filepath.Dir(doc.FilePath))
	}
	return nil
}
