package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/pkg/response"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/service"
)

const resourceQuery = "QUERY"

type QueryHandler struct {
	svc *service.QueryService
}

func NewQueryHandler(svc *service.QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type CreateQueryRequest struct {
	QueryText string `json:"query_text" binding:"required"`
}

// Create answers the question. The fixed apology answer is returned with
// 200; the cause stays in the server log.
func (h *QueryHandler) Create(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	var req CreateQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "query_text is required")
		return
	}
	if strings.TrimSpace(req.QueryText) == "" {
		response.BadRequest(c, "query_text must not be blank")
		return
	}

	resp := h.svc.Ask(c.Request.Context(), userID, req.QueryText)
	response.Success(c, resp)
}

func (h *QueryHandler) List(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	limit, offset := response.Page(c)

	queries, total, err := h.svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		fail(c, resourceQuery, err)
		return
	}
	response.List(c, queries, total, limit, offset)
}

func (h *QueryHandler) Get(c *gin.Context) {
	userID, id, ok := identity(c)
	if !ok {
		return
	}

	q, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, resourceQuery, err)
		return
	}
	response.Success(c, q)
}
