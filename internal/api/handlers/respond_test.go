package handlers

import (
	"net/http"
	"testing"

	"github.com/your-org/faceattend/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		kind apperr.Kind
		want int
	}{
		{"validation", apperr.KindValidation, http.StatusBadRequest},
		{"quality rejected", apperr.KindQualityRejected, http.StatusBadRequest},
		{"no face detected", apperr.KindNoFaceDetected, http.StatusBadRequest},
		{"encoding failed", apperr.KindEncodingFailed, http.StatusBadRequest},
		{"insufficient samples", apperr.KindInsufficientSamples, http.StatusBadRequest},
		// A duplicate NIM is rejected as bad input, same as the other
		// enrollment rejections.
		{"duplicate identity", apperr.KindDuplicateIdentity, http.StatusBadRequest},
		{"not found", apperr.KindNotFound, http.StatusNotFound},
		{"storage", apperr.KindStorage, http.StatusInternalServerError},
		{"unknown", apperr.KindUnknown, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.kind); got != tc.want {
				t.Errorf("statusFor(%s) = %d; want %d", tc.kind, got, tc.want)
			}
		})
	}
}
