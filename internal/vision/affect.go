package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// AffectEmotions lists the raw model classes in output order.
var AffectEmotions = []string{"happy", "surprise", "neutral", "sad", "angry", "fear", "disgust"}

// AffectScorer produces raw per-emotion scores from a face crop using a
// 7-class FER-style ONNX model with 64x64 grayscale input.
type AffectScorer struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

// NewAffectScorer loads the emotion ONNX model.
func NewAffectScorer(modelPath string) (*AffectScorer, error) {
	inputW, inputH := 64, 64

	inputShape := ort.NewShape(1, 1, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(len(AffectEmotions)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create affect session: %w", err)
	}

	return &AffectScorer{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Score runs one inference pass. faceData is grayscale [1, 64, 64] float32.
// Returns emotion name → percentage (0-100), softmaxed over the 7 classes.
func (a *AffectScorer) Score(faceData []float32) (map[string]float64, error) {
	copy(a.inputTensor.GetData(), faceData)

	if err := a.session.Run(); err != nil {
		return nil, fmt.Errorf("run affect: %w", err)
	}

	logits := a.outputTensor.GetData()
	if len(logits) < len(AffectEmotions) {
		return nil, fmt.Errorf("unexpected output size: %d", len(logits))
	}

	// Softmax over logits, scaled to percentages.
	var maxLogit float64 = math.Inf(-1)
	for _, l := range logits[:len(AffectEmotions)] {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}

	exps := make([]float64, len(AffectEmotions))
	var total float64
	for i := range AffectEmotions {
		exps[i] = math.Exp(float64(logits[i]) - maxLogit)
		total += exps[i]
	}

	scores := make(map[string]float64, len(AffectEmotions))
	for i, name := range AffectEmotions {
		scores[name] = exps[i] / total * 100
	}
	return scores, nil
}

// InputSize returns the expected face crop dimensions.
func (a *AffectScorer) InputSize() (int, int) {
	return a.inputW, a.inputH
}

func (a *AffectScorer) Close() {
	if a.session != nil {
		a.session.Destroy()
	}
	if a.inputTensor != nil {
		a.inputTensor.Destroy()
	}
	if a.outputTensor != nil {
		a.outputTensor.Destroy()
	}
}
