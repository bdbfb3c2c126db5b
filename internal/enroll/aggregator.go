package enroll

import (
	"image"
	"log/slog"
	"sort"
	"sync"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/vision"
)

// Sample is one surviving enrollment candidate: a descriptor plus the
// sharpness of its source image, used for quality ranking.
type Sample struct {
	Index     int // position in the submitted batch
	Vector    []float32
	Sharpness float64
}

// Aggregator turns a batch of candidate images into a filtered,
// quality-ranked descriptor set for one new identity.
//
// Images are independent, so the batch is processed on a bounded worker
// pool. Per-image failures (bad encoding, quality gate, extraction) drop
// that image and continue; only too few survivors fails the whole batch.
type Aggregator struct {
	cfg config.RecognitionConfig
	// ExtractFn computes a descriptor from a validated pixel grid.
	// Wired to the vision pipeline in main; tests substitute a fake.
	ExtractFn func(img image.Image) ([]float32, error)
}

func NewAggregator(cfg config.RecognitionConfig, extractFn func(image.Image) ([]float32, error)) *Aggregator {
	return &Aggregator{cfg: cfg, ExtractFn: extractFn}
}

// Process runs the full enrollment pipeline over the batch and returns the
// final descriptor set to persist. Survivor order follows input order unless
// the top-N quality cap reorders by sharpness.
func (a *Aggregator) Process(images []string) ([]Sample, error) {
	results := make([]*Sample, len(images))

	workers := a.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(images) {
		workers = len(images)
	}

	indices := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = a.processOne(i, images[i])
			}
		}()
	}

	for i := range images {
		indices <- i
	}
	close(indices)
	wg.Wait()

	survivors := make([]Sample, 0, len(results))
	for _, r := range results {
		if r != nil {
			survivors = append(survivors, *r)
		}
	}

	if len(survivors) < a.cfg.MinEncodings {
		return nil, apperr.Newf(apperr.KindInsufficientSamples,
			"only %d valid photos out of %d, at least %d required",
			len(survivors), len(images), a.cfg.MinEncodings)
	}

	// Bound storage and matching cost: keep only the sharpest N.
	if len(survivors) > a.cfg.MaxEncodings {
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].Sharpness > survivors[j].Sharpness
		})
		slog.Info("capping enrollment batch to best samples",
			"survivors", len(survivors), "kept", a.cfg.MaxEncodings)
		survivors = survivors[:a.cfg.MaxEncodings]
	}

	return survivors, nil
}

func (a *Aggregator) processOne(idx int, encoded string) *Sample {
	img, err := vision.DecodeBase64Image(encoded, a.cfg.Quality.MaxImageSize)
	if err != nil {
		slog.Warn("enrollment image dropped", "index", idx, "reason", "decode", "error", err)
		return nil
	}

	if err := vision.ValidateQuality(img, a.cfg.Quality); err != nil {
		slog.Warn("enrollment image dropped", "index", idx, "reason", "quality", "error", err)
		return nil
	}

	descriptor, err := a.ExtractFn(img)
	if err != nil {
		slog.Warn("enrollment image dropped", "index", idx, "reason", "extract", "error", err)
		return nil
	}

	return &Sample{
		Index:     idx,
		Vector:    descriptor,
		Sharpness: vision.Sharpness(img),
	}
}
