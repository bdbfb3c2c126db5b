package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(KindNoFaceDetected, "no face detected")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", base, KindNoFaceDetected},
		{"wrapped with fmt", fmt.Errorf("pipeline: %w", base), KindNoFaceDetected},
		{"plain error", errors.New("boom"), KindUnknown},
		{"nil cause wrap", Wrap(KindStorage, "database unavailable", errors.New("conn reset")), KindStorage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %s; want %s", got, tc.want)
			}
		})
	}
}

func TestMessageHidesUnclassifiedErrors(t *testing.T) {
	if msg := Message(errors.New("pq: relation does not exist")); msg != "internal server error" {
		t.Errorf("message = %q; unclassified errors must not leak", msg)
	}
	if msg := Message(New(KindValidation, "image is required")); msg != "image is required" {
		t.Errorf("message = %q; want the client-safe text", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("conn reset")
	err := Wrap(KindStorage, "database unavailable", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}
