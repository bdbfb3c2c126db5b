// Package handlers implements the HTTP surface. Handlers depend on small
// interfaces so tests can substitute fakes for the database, the vision
// pipeline, the object store and the event queue.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceattend/internal/apperr"
)

// statusFor maps an error kind to an HTTP status. Rejections of the caller's
// input are 4xx; everything unclassified stays a 500.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindQualityRejected,
		apperr.KindNoFaceDetected, apperr.KindEncodingFailed,
		apperr.KindInsufficientSamples, apperr.KindDuplicateIdentity:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= 500 {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   kind.String(),
		"message": apperr.Message(err),
	})
}
