package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "socialnet/pkg/errors"
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperrors.ErrorType) int {
	switch kind {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeCommandLog:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "kind"} with the status for err's kind.
// Errors without a kind are reported as internal.
func respondError(c *gin.Context, err error) {
	kind, ok := apperrors.TypeOf(err)
	if !ok {
		kind = "internal"
	}
	status := statusFor(kind)

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind,
	})
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": bindingError(err),
		"kind":  apperrors.ErrorTypeValidation,
	})
}
