package vision

import (
	"image"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
)

// ValidateQuality gates an image before it reaches the extractor.
// Returns nil when the image passes, or a QualityRejected error naming
// the failed check. Runs on every enrollment candidate and on every probe.
func ValidateQuality(img image.Image, cfg config.QualityConfig) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w < cfg.MinDimension || h < cfg.MinDimension {
		return apperr.Newf(apperr.KindQualityRejected, "image too small (%dx%d)", w, h)
	}

	lum := luminanceGrid(img)

	brightness := meanOf(lum)
	if brightness < cfg.MinBrightness {
		return apperr.New(apperr.KindQualityRejected, "image too dark")
	}
	if brightness > cfg.MaxBrightness {
		return apperr.New(apperr.KindQualityRejected, "image too bright")
	}

	if laplacianVariance(lum, w, h) < cfg.MinSharpness {
		return apperr.New(apperr.KindQualityRejected, "image too blurry")
	}

	return nil
}

// Sharpness is the focus measure used to rank enrollment candidates:
// the variance of a 3x3 Laplacian over the luminance channel.
func Sharpness(img image.Image) float64 {
	bounds := img.Bounds()
	return laplacianVariance(luminanceGrid(img), bounds.Dx(), bounds.Dy())
}

// luminanceGrid flattens the image to Rec. 601 luma, row-major.
func luminanceGrid(img image.Image) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	lum := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r >> 8)
			gf := float64(g >> 8)
			bf := float64(b >> 8)
			lum[y*w+x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return lum
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// laplacianVariance convolves the 4-neighbour Laplacian kernel over lum
// and returns the variance of the response. Low variance means few edges,
// i.e. a blurry image.
func laplacianVariance(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}

	n := (w - 2) * (h - 2)
	resp := make([]float64, 0, n)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := lum[y*w+x]
			v := 4*center - lum[(y-1)*w+x] - lum[(y+1)*w+x] - lum[y*w+x-1] - lum[y*w+x+1]
			resp = append(resp, v)
		}
	}

	mean := meanOf(resp)
	var variance float64
	for _, v := range resp {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(resp))
}
