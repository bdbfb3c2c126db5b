package enroll

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
)

func testConfig() config.RecognitionConfig {
	return config.RecognitionConfig{
		MinEncodings: 5,
		MaxEncodings: 10,
		MaxWorkers:   2,
		Quality: config.QualityConfig{
			MinDimension:  50,
			MinBrightness: 15,
			MaxBrightness: 245,
			MinSharpness:  10,
			MaxImageSize:  1024,
		},
	}
}

// checkerboardImage passes every quality check: mid brightness, maximal
// edge response.
func checkerboardImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			c := color.RGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestProcessEnoughSamples(t *testing.T) {
	agg := NewAggregator(testConfig(), func(image.Image) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})

	samples, err := agg.Process(repeat(checkerboardImage(t), 5))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(samples) != 5 {
		t.Errorf("samples = %d; want 5", len(samples))
	}
	for i, s := range samples {
		if len(s.Vector) != 2 {
			t.Errorf("sample %d vector length = %d; want 2", i, len(s.Vector))
		}
		if s.Sharpness <= 0 {
			t.Errorf("sample %d sharpness = %f; want > 0", i, s.Sharpness)
		}
	}
}

func TestProcessTooFewSurvivors(t *testing.T) {
	agg := NewAggregator(testConfig(), func(image.Image) ([]float32, error) {
		return []float32{0.1}, nil
	})

	_, err := agg.Process(repeat(checkerboardImage(t), 2))
	if err == nil {
		t.Fatal("expected error with 2 images and min 5")
	}
	if apperr.KindOf(err) != apperr.KindInsufficientSamples {
		t.Errorf("kind = %s; want insufficient_samples", apperr.KindOf(err))
	}
	msg := apperr.Message(err)
	if !strings.Contains(msg, "2") || !strings.Contains(msg, "5") {
		t.Errorf("message %q should name the survivor count and the minimum", msg)
	}
}

func TestProcessDropsBadImages(t *testing.T) {
	agg := NewAggregator(testConfig(), func(image.Image) ([]float32, error) {
		return []float32{0.1}, nil
	})

	images := append(repeat(checkerboardImage(t), 5), "not-base64!!!", "aGVsbG8=")
	samples, err := agg.Process(images)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(samples) != 5 {
		t.Errorf("samples = %d; want 5 (bad images dropped silently)", len(samples))
	}
}

func TestProcessDropsExtractionFailures(t *testing.T) {
	calls := 0
	agg := NewAggregator(testConfig(), func(image.Image) ([]float32, error) {
		calls++
		return nil, errors.New("no face")
	})

	_, err := agg.Process(repeat(checkerboardImage(t), 6))
	if apperr.KindOf(err) != apperr.KindInsufficientSamples {
		t.Errorf("kind = %s; want insufficient_samples when every extraction fails", apperr.KindOf(err))
	}
	if calls != 6 {
		t.Errorf("extractor called %d times; want 6", calls)
	}
}

func TestProcessCapsAtMaxEncodings(t *testing.T) {
	cfg := testConfig()
	cfg.MinEncodings = 2
	cfg.MaxEncodings = 3

	agg := NewAggregator(cfg, func(image.Image) ([]float32, error) {
		return []float32{0.1}, nil
	})

	samples, err := agg.Process(repeat(checkerboardImage(t), 6))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("samples = %d; want capped at 3", len(samples))
	}
}
