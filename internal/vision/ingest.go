package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/your-org/faceattend/internal/apperr"
)

// DecodeBase64Image converts a transfer-encoded image into a pixel grid.
// Accepts an optional data-URL prefix ("data:image/jpeg;base64,...").
// Oversized images are downscaled to maxSize on the longer side with
// Lanczos resampling before any further processing.
func DecodeBase64Image(encoded string, maxSize int) (image.Image, error) {
	raw, err := DecodeBase64Bytes(encoded)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid image format", err)
	}

	return ClampSize(img, maxSize), nil
}

// DecodeBase64Bytes returns the raw compressed bytes behind a transfer
// encoding, keeping the original container for object storage.
func DecodeBase64Bytes(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.Contains(encoded[:idx], "base64") {
		encoded = encoded[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid image encoding", err)
	}
	return raw, nil
}

// ClampSize downscales img so its longer side is at most maxSize,
// preserving aspect ratio. Smaller images pass through untouched.
func ClampSize(img image.Image, maxSize int) image.Image {
	if maxSize <= 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxSize, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSize, imaging.Lanczos)
}
