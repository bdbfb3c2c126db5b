package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// EnhanceContrast produces the contrast-boosted variant used for the
// detection retry pass and for the emotion ensemble.
func EnhanceContrast(img image.Image) image.Image {
	return imaging.Sharpen(imaging.AdjustContrast(img, 20), 0.5)
}

// Brighten produces the slightly brightened variant for the emotion ensemble.
func Brighten(img image.Image) image.Image {
	return imaging.AdjustBrightness(imaging.AdjustContrast(img, 10), 10)
}
