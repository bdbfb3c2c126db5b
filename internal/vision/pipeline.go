package vision

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/observability"
)

// Pipeline owns the ONNX sessions and turns a validated pixel grid into a
// face descriptor or raw emotion scores. Sessions reuse fixed tensors, so
// all inference passes are serialized behind a mutex.
type Pipeline struct {
	mu       sync.Mutex
	detector *Detector
	embedder *Embedder
	affect   *AffectScorer
	jitters  int
	ensemble bool
}

// NewPipeline loads all models from cfg.ModelsDir and returns a ready pipeline.
func NewPipeline(cfg config.RecognitionConfig, emoCfg config.EmotionConfig) (*Pipeline, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "face_embed.onnx")
	affPath := filepath.Join(cfg.ModelsDir, "emotion_fer.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath, "dim", cfg.DescriptorDim)
	emb, err := NewEmbedder(embPath, cfg.DescriptorDim)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("loading emotion model", "path", affPath)
	aff, err := NewAffectScorer(affPath)
	if err != nil {
		det.Close()
		emb.Close()
		return nil, fmt.Errorf("load affect scorer: %w", err)
	}

	slog.Info("vision pipeline ready")

	return &Pipeline{
		detector: det,
		embedder: emb,
		affect:   aff,
		jitters:  cfg.Jitters,
		ensemble: emoCfg.Ensemble,
	}, nil
}

// Dim returns the descriptor dimension produced by the embedder.
func (p *Pipeline) Dim() int {
	return p.embedder.Dim()
}

// ExtractDescriptor locates the primary face and computes its descriptor.
// With several faces in frame, the largest bounding box wins. A failed
// detection gets one retry against a contrast-enhanced variant before
// giving up with NoFaceDetected.
func (p *Pipeline) ExtractDescriptor(img image.Image) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	face, err := p.locateFace(img)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	}()

	// Jittered extraction: each pass embeds a slightly perturbed crop and the
	// results are averaged. Jitter count 1 is a single unperturbed pass and
	// therefore fully deterministic.
	passes := p.jitters
	if passes < 1 {
		passes = 1
	}
	if passes > len(jitterOffsets) {
		passes = len(jitterOffsets)
	}

	var descriptors [][]float32
	for i := 0; i < passes; i++ {
		crop := cropFace(img, perturbBox(face.BBox, jitterOffsets[i], img.Bounds()))
		if crop == nil {
			continue
		}
		embInput := preprocessForEmbedding(crop, p.embedder.inputW, p.embedder.inputH)
		d, err := p.embedder.Extract(embInput)
		if err != nil {
			slog.Warn("embedding pass failed", "pass", i, "error", err)
			continue
		}
		descriptors = append(descriptors, d)
	}

	if len(descriptors) == 0 {
		return nil, apperr.New(apperr.KindEncodingFailed, "failed to extract face descriptor")
	}

	return AverageDescriptors(descriptors), nil
}

// EmotionScores returns raw 7-class emotion percentages for the primary face,
// or nil when no signal could be extracted (the caller falls back to neutral).
// With ensembling enabled, scores are averaged across the original, a
// contrast-enhanced, and a brightened variant.
func (p *Pipeline) EmotionScores(img image.Image) map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		observability.InferenceDuration.WithLabelValues("emotion").Observe(time.Since(start).Seconds())
	}()

	variants := []image.Image{img}
	if p.ensemble {
		variants = append(variants, EnhanceContrast(img), Brighten(img))
	}

	var collected []map[string]float64
	for _, v := range variants {
		scores := p.scoreVariant(v)
		if scores != nil {
			collected = append(collected, scores)
		}
	}

	if len(collected) == 0 {
		return nil
	}
	if len(collected) == 1 {
		return collected[0]
	}

	avg := make(map[string]float64, len(AffectEmotions))
	for _, name := range AffectEmotions {
		var sum float64
		for _, s := range collected {
			sum += s[name]
		}
		avg[name] = sum / float64(len(collected))
	}
	return avg
}

func (p *Pipeline) scoreVariant(img image.Image) map[string]float64 {
	face, err := p.locateFace(img)
	if err != nil {
		return nil
	}
	crop := cropFace(img, face.BBox)
	if crop == nil {
		return nil
	}
	scores, err := p.affect.Score(preprocessForAffect(crop, p.affect.inputW, p.affect.inputH))
	if err != nil {
		slog.Warn("affect scoring failed", "error", err)
		return nil
	}
	return scores
}

// locateFace detects faces and applies the largest-box heuristic. Callers
// hold p.mu.
func (p *Pipeline) locateFace(img image.Image) (Face, error) {
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, p.detector.inputW, p.detector.inputH)
	faces, err := p.detector.Detect(detInput, origW, origH)
	if err != nil {
		return Face{}, fmt.Errorf("detect: %w", err)
	}

	// Retry once on a contrast-enhanced variant before failing.
	if len(faces) == 0 {
		enhanced := EnhanceContrast(img)
		detInput = preprocessForDetection(enhanced, p.detector.inputW, p.detector.inputH)
		faces, err = p.detector.Detect(detInput, origW, origH)
		if err != nil {
			return Face{}, fmt.Errorf("detect (enhanced): %w", err)
		}
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	face, ok := LargestFace(faces)
	if !ok {
		return Face{}, apperr.New(apperr.KindNoFaceDetected, "no face detected, make sure the face is clearly visible")
	}
	return face, nil
}

// Close releases all ONNX sessions.
func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
	if p.embedder != nil {
		p.embedder.Close()
	}
	if p.affect != nil {
		p.affect.Close()
	}
}

// --- Jitter ---

// jitterOffsets is a fixed perturbation table: {dx, dy, scale} applied to the
// face box relative to its size. Index 0 is the identity, so extraction with
// one pass is reproducible bit-for-bit on the same pixel grid.
var jitterOffsets = [][3]float32{
	{0, 0, 1.0},
	{0.02, 0, 1.0},
	{-0.02, 0.01, 0.98},
	{0.01, -0.02, 1.02},
	{-0.01, 0.02, 1.0},
	{0.03, 0.01, 0.97},
	{-0.03, -0.01, 1.03},
	{0, 0.03, 0.99},
	{0.02, -0.03, 1.01},
	{-0.02, -0.02, 0.98},
}

func perturbBox(bbox [4]float32, offset [3]float32, bounds image.Rectangle) [4]float32 {
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	cx := (bbox[0] + bbox[2]) / 2
	cy := (bbox[1] + bbox[3]) / 2

	cx += offset[0] * w
	cy += offset[1] * h
	halfW := w * offset[2] / 2
	halfH := h * offset[2] / 2

	maxW := float32(bounds.Dx())
	maxH := float32(bounds.Dy())
	return [4]float32{
		clampF(cx-halfW, 0, maxW),
		clampF(cy-halfH, 0, maxH),
		clampF(cx+halfW, 0, maxW),
		clampF(cy+halfH, 0, maxH),
	}
}

// --- Image preprocessing helpers ---

func preprocessForDetection(img image.Image, targetW, targetH int) []float32 {
	return imageToFloat32CHW(img, targetW, targetH, [3]float32{127.5, 127.5, 127.5}, [3]float32{128.0, 128.0, 128.0})
}

func preprocessForEmbedding(img image.Image, targetW, targetH int) []float32 {
	return imageToFloat32CHW(img, targetW, targetH, [3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5})
}

// preprocessForAffect converts a face crop to grayscale [1, H, W] scaled to [0,1].
func preprocessForAffect(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray := 0.299*float32(r>>8) + 0.587*float32(g>>8) + 0.114*float32(b>>8)
			data[y*w+x] = gray / 255.0
		}
	}
	return data
}

// imageToFloat32CHW converts an image to CHW float32 format with normalization:
//
//	pixel = (pixel - mean) / std
func imageToFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			idx := y*w + x
			data[0*h*w+idx] = (rf - mean[0]) / std[0]
			data[1*h*w+idx] = (gf - mean[1]) / std[1]
			data[2*h*w+idx] = (bf - mean[2]) / std[2]
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}

// cropFace extracts a face region with 10% padding on each side.
func cropFace(img image.Image, bbox [4]float32) image.Image {
	bounds := img.Bounds()

	x1 := int(bbox[0])
	y1 := int(bbox[1])
	x2 := int(bbox[2])
	y2 := int(bbox[3])

	w := x2 - x1
	h := y2 - y1
	if w <= 0 || h <= 0 {
		return nil
	}

	padW := int(float32(w) * 0.1)
	padH := int(float32(h) * 0.1)
	x1 -= padW
	y1 -= padH
	x2 += padW
	y2 += padH

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for cy := y1; cy < y2; cy++ {
		for cx := x1; cx < x2; cx++ {
			crop.Set(cx-x1, cy-y1, img.At(cx, cy))
		}
	}

	return crop
}
