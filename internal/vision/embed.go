package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// Embedder extracts fixed-dimension face descriptors using an ArcFace-style
// ONNX model. The descriptor dimension is a model property passed at
// construction so gallery and probe vectors always agree.
type Embedder struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	dim          int
}

// NewEmbedder loads the embedding ONNX model.
func NewEmbedder(modelPath string, dim int) (*Embedder, error) {
	inputW, inputH := 112, 112

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(dim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		[]string{"683"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}

	return &Embedder{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
		dim:          dim,
	}, nil
}

// Extract runs one embedding pass on a preprocessed face crop.
// faceData is CHW float32 [3, 112, 112]. The result is L2-normalized.
func (e *Embedder) Extract(faceData []float32) ([]float32, error) {
	copy(e.inputTensor.GetData(), faceData)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	descriptor := make([]float32, e.dim)
	copy(descriptor, e.outputTensor.GetData())

	normalize(descriptor)
	return descriptor, nil
}

// InputSize returns the expected face crop dimensions.
func (e *Embedder) InputSize() (int, int) {
	return e.inputW, e.inputH
}

// Dim returns the descriptor dimension.
func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}

// normalize performs L2 normalization in-place.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}

// AverageDescriptors averages several descriptors of equal dimension and
// re-normalizes the result. Used to blend jittered extraction passes.
func AverageDescriptors(descriptors [][]float32) []float32 {
	if len(descriptors) == 0 {
		return nil
	}
	if len(descriptors) == 1 {
		return descriptors[0]
	}

	dim := len(descriptors[0])
	avg := make([]float32, dim)
	for _, d := range descriptors {
		for i, x := range d {
			avg[i] += x
		}
	}
	n := float32(len(descriptors))
	for i := range avg {
		avg[i] /= n
	}
	normalize(avg)
	return avg
}
