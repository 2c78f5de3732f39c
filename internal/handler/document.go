package handler

import (
	"mime"
	"mime/multipart"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/pkg/response"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/service"
)

const resourceDocument = "DOCUMENT"

type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	limit, offset := response.Page(c)

	docs, total, err := h.svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		fail(c, resourceDocument, err)
		return
	}
	response.List(c, docs, total, limit, offset)
}

// Upload stores the multipart "file" field and processes it before
// responding. Processing failures are reported through the document's
// status, not the HTTP status.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	doc, err := h.svc.Upload(
		c.Request.Context(),
		userID,
		header.Filename,
		contentTypeOf(header),
		header.Size,
		file,
	)
	if err != nil {
		fail(c, resourceDocument, err)
		return
	}

	h.svc.Process(c.Request.Context(), doc)
	response.Created(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, id, ok := identity(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, resourceDocument, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	userID, id, ok := identity(c)
	if !ok {
		return
	}

	status, err := h.svc.Status(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, resourceDocument, err)
		return
	}
	response.Success(c, status)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	userID, id, ok := identity(c)
	if !ok {
		return
	}

	chunks, err := h.svc.Chunks(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, resourceDocument, err)
		return
	}
	response.Success(c, gin.H{"data": chunks})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, id, ok := identity(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		fail(c, resourceDocument, err)
		return
	}
	response.NoContent(c)
}

// contentTypeOf falls back to the file extension when the client sent no
// specific type.
func contentTypeOf(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" || service.NormalizeContentType(ct) == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			return byExt
		}
	}
	return ct
}
