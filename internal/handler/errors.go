package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/middleware"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/pkg/response"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/service"
)

// fail maps a service error onto the response envelope.
func fail(c *gin.Context, resource string, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c, resource)
	case errors.Is(err, service.ErrUnsupportedContentKind):
		response.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE", err.Error(), nil)
	case errors.Is(err, service.ErrFileTooLarge):
		response.TooLarge(c, err.Error())
	default:
		log.Printf("[Handler] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		response.InternalError(c, "internal server error")
	}
}

// identity returns the caller and the :id path parameter, writing the error
// response itself when either is unusable.
func identity(c *gin.Context) (userID, id uuid.UUID, ok bool) {
	userID, ok = middleware.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "MISSING_USER_ID", "X-User-ID header is required", nil)
		return uuid.Nil, uuid.Nil, false
	}
	if raw := c.Param("id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid id")
			return uuid.Nil, uuid.Nil, false
		}
		id = parsed
	}
	return userID, id, true
}
