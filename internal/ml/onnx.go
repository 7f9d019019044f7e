package ml

import (
	onnxruntime "github.com/yalue/onnxruntime_go"

	"augur/pkg/errors"
)

// classNames maps model output indices to sentiments. Fixed by the
// training pipeline.
var classNames = []string{"bullish", "bearish", "neutral"}

// ONNXModel wraps an ONNX Runtime session for sentiment inference.
type ONNXModel struct {
	session     *onnxruntime.DynamicAdvancedSession
	inputName   string
	outputNames []string
}

// LoadONNXModel loads an exported ensemble from file.
func LoadONNXModel(modelPath string) (*ONNXModel, error) {
	err := onnxruntime.InitializeEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	// Input: "input" (feature vector)
	// Outputs: "output" (predicted class), "probabilities" (class probabilities)
	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"output", "probabilities"}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &ONNXModel{
		session:     session,
		inputName:   "input",
		outputNames: []string{"output", "probabilities"},
	}, nil
}

// Predict runs inference and returns the predicted class name plus the
// full probability map.
func (m *ONNXModel) Predict(features []float64) (string, map[string]float64, error) {
	if m.session == nil {
		return "", nil, errors.New("model session is nil")
	}
	if len(features) != FeatureCount {
		return "", nil, errors.Newf("expected %d features, got %d", FeatureCount, len(features))
	}

	inputShape := onnxruntime.NewShape(1, int64(len(features)))
	inputTensor, err := onnxruntime.NewTensor(inputShape, features)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	classOutput := make([]int64, 1)
	classShape := onnxruntime.NewShape(1)
	classTensor, err := onnxruntime.NewTensor(classShape, classOutput)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create class output tensor")
	}
	defer classTensor.Destroy()

	numClasses := len(classNames)
	probabilitiesOutput := make([]float64, numClasses)
	probShape := onnxruntime.NewShape(1, int64(numClasses))
	probTensor, err := onnxruntime.NewTensor(probShape, probabilitiesOutput)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create probabilities output tensor")
	}
	defer probTensor.Destroy()

	inputs := []onnxruntime.Value{inputTensor}
	outputs := []onnxruntime.Value{classTensor, probTensor}
	if err := m.session.Run(inputs, outputs); err != nil {
		return "", nil, errors.Wrap(err, "inference failed")
	}

	predictedClass := int(classOutput[0])
	if predictedClass < 0 || predictedClass >= len(classNames) {
		return "", nil, errors.Newf("invalid class index: %d", predictedClass)
	}

	probMap := make(map[string]float64, numClasses)
	for i, prob := range probabilitiesOutput {
		probMap[classNames[i]] = prob
	}

	return classNames[predictedClass], probMap, nil
}

// Destroy cleans up the ONNX session.
func (m *ONNXModel) Destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
