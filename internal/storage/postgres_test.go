package storage

import (
	"math"
	"testing"

	"github.com/pgvector/pgvector-go"
)

func TestDescriptorVectorRoundTrip(t *testing.T) {
	unit := make([]float32, 128)
	norm := float32(math.Sqrt(128))
	for i := range unit {
		unit[i] = 1 / norm
	}

	tests := []struct {
		name   string
		vector []float32
	}{
		{"small values", []float32{0.001, -0.002, 0.0005}},
		{"mixed signs", []float32{-0.731, 0.482, -0.019, 0.999}},
		{"normalized 128-d", unit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pgvector.NewVector(tc.vector).Slice()
			if len(got) != len(tc.vector) {
				t.Fatalf("round-trip length = %d; want %d", len(got), len(tc.vector))
			}
			for i := range tc.vector {
				if diff := math.Abs(float64(got[i]) - float64(tc.vector[i])); diff > 1e-6 {
					t.Errorf("component %d = %f; want %f (diff %g)", i, got[i], tc.vector[i], diff)
				}
			}
		})
	}
}
