package ml

import (
	"sync"

	"augur/internal/domain/signal"
	"augur/internal/indicators"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

// SentimentClassifier predicts directional sentiment from a feature
// vector using a trained ONNX ensemble. Safe for concurrent use; the
// underlying model can be hot-swapped after retraining.
type SentimentClassifier struct {
	mu      sync.RWMutex
	model   *ONNXModel
	version string
	log     *logger.Logger
}

// NewSentimentClassifier loads the model at modelPath. version names
// the trained artifact and is stamped onto every evaluation.
func NewSentimentClassifier(modelPath, version string) (*SentimentClassifier, error) {
	model, err := LoadONNXModel(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sentiment model")
	}
	return &SentimentClassifier{
		model:   model,
		version: version,
		log:     logger.Get().With("component", "sentiment_classifier"),
	}, nil
}

// PredictSentiment runs inference against the current model. The
// returned confidence is the winning class probability.
func (c *SentimentClassifier) PredictSentiment(snap *indicators.Snapshot, smcDirection float64, trend signal.StructureTrend) (signal.Sentiment, float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.model == nil {
		return signal.SentimentNeutral, 0, errors.New("classifier model is not loaded")
	}

	features := BuildFeatureVector(snap, smcDirection, trend)
	class, probabilities, err := c.model.Predict(features)
	if err != nil {
		return signal.SentimentNeutral, 0, errors.Wrap(err, "sentiment inference failed")
	}

	sentiment := signal.Sentiment(class)
	if !sentiment.Valid() {
		return signal.SentimentNeutral, 0, errors.Newf("model returned unknown class %q", class)
	}
	return sentiment, probabilities[class], nil
}

// Version names the active model artifact.
func (c *SentimentClassifier) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Swap atomically replaces the active model with a freshly trained one
// and destroys the old session.
func (c *SentimentClassifier) Swap(modelPath, version string) error {
	model, err := LoadONNXModel(modelPath)
	if err != nil {
		return errors.Wrap(err, "failed to load replacement model")
	}

	c.mu.Lock()
	old := c.model
	oldVersion := c.version
	c.model = model
	c.version = version
	c.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
	c.log.Infow("model swapped", "old_version", oldVersion, "new_version", version)
	return nil
}

// Close releases the model session.
func (c *SentimentClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		c.model.Destroy()
		c.model = nil
	}
}
