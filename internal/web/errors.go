package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"operaflow/internal/model"
	"operaflow/internal/store"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateCode):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidProgress),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, model.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func ok(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"data": data})
}
