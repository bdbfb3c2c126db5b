package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/your-org/faceattend/internal/apperr"
)

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeBase64Image(t *testing.T) {
	encoded := encodePNG(t, solidImage(40, 30, color.RGBA{R: 128, G: 128, B: 128, A: 255}))

	tests := []struct {
		name  string
		input string
	}{
		{"raw base64", encoded},
		{"data url prefix", "data:image/png;base64," + encoded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodeBase64Image(tc.input, 1024)
			if err != nil {
				t.Fatalf("DecodeBase64Image: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != 40 || b.Dy() != 30 {
				t.Errorf("decoded size = %dx%d; want 40x30", b.Dx(), b.Dy())
			}
		})
	}
}

func TestDecodeBase64ImageInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!definitely not base64!!!"},
		{"base64 but not an image", base64.StdEncoding.EncodeToString([]byte("hello world"))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBase64Image(tc.input, 1024)
			if err == nil {
				t.Fatal("expected error")
			}
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("kind = %s; want validation", apperr.KindOf(err))
			}
		})
	}
}

func TestDecodeBase64ImageDownscalesOversized(t *testing.T) {
	encoded := encodePNG(t, solidImage(800, 400, color.RGBA{R: 100, G: 100, B: 100, A: 255}))

	img, err := DecodeBase64Image(encoded, 400)
	if err != nil {
		t.Fatalf("DecodeBase64Image: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 400 || b.Dy() != 200 {
		t.Errorf("clamped size = %dx%d; want 400x200 (aspect preserved)", b.Dx(), b.Dy())
	}
}

func TestClampSizePassthrough(t *testing.T) {
	img := solidImage(100, 50, color.RGBA{A: 255})
	out := ClampSize(img, 200)
	if out != image.Image(img) {
		t.Error("image below the limit should pass through untouched")
	}
}
