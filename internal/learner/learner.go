package learner

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"augur/internal/domain/prediction"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

// Config tunes the retraining triggers.
type Config struct {
	// RetrainInterval is the time trigger: retrain when this much time
	// passed since the last training. A never-trained model satisfies
	// the trigger immediately.
	RetrainInterval time.Duration

	// AccuracyFloor fires the performance trigger when measured
	// accuracy falls strictly below it. Sitting exactly at the floor
	// does not fire.
	AccuracyFloor float64

	// AccuracyWindow is the trailing window accuracy is measured over.
	AccuracyWindow time.Duration

	// MinVerifiedForAccuracy is the minimum verified count inside the
	// window before the performance trigger is considered at all.
	MinVerifiedForAccuracy int

	// NewSamplesThreshold fires the volume trigger when this many
	// predictions verified since the last training.
	NewSamplesThreshold int

	// MinTrainingSamples is the smallest dataset a retrain will accept.
	MinTrainingSamples int
}

// DefaultConfig returns production learner settings.
func DefaultConfig() Config {
	return Config{
		RetrainInterval:        24 * time.Hour,
		AccuracyFloor:          0.70,
		AccuracyWindow:         7 * 24 * time.Hour,
		MinVerifiedForAccuracy: 50,
		NewSamplesThreshold:    200,
		MinTrainingSamples:     100,
	}
}

// AccuracySource reports prediction accuracy over a trailing window.
type AccuracySource interface {
	Accuracy(ctx context.Context, symbol string, window time.Duration) (prediction.AccuracyReport, error)
	TrainingData(ctx context.Context, symbol string, since time.Time, limit int) ([]prediction.TrainingSample, error)
}

// TrainResult describes a finished training run.
type TrainResult struct {
	Version   string
	Accuracy  float64
	ModelPath string
}

// Trainer runs one model training pass over a dataset. A trainer that
// observes context cancellation must return an error wrapping
// ErrTrainingCancelled.
type Trainer interface {
	Train(ctx context.Context, symbol string, samples []prediction.TrainingSample) (*TrainResult, error)
}

// ModelSwapper installs a freshly trained model artifact.
type ModelSwapper interface {
	Swap(modelPath, version string) error
	Version() string
}

// Decision is the outcome of a trigger evaluation.
type Decision struct {
	Retrain bool
	Trigger prediction.TriggerReason
	Reason  string
}

// LearningStats is a point-in-time view of the learning loop.
type LearningStats struct {
	Symbol            string          `json:"symbol"`
	ModelVersion      string          `json:"model_version"`
	LastTrainedAt     *time.Time      `json:"last_trained_at,omitempty"`
	RetrainCount      int             `json:"retrain_count"`
	VerifiedSinceLast int             `json:"verified_since_last"`
	CurrentAccuracy   float64         `json:"current_accuracy"`
	AccuracySamples   int             `json:"accuracy_samples"`
	NextTimeTrigger   time.Time       `json:"next_time_trigger"`
}

// Learner decides when the model degraded enough, or aged enough, to
// retrain, and runs the retrain. One retrain per symbol at a time;
// concurrent attempts are rejected with ErrRetrainInProgress.
type Learner struct {
	cfg      Config
	source   AccuracySource
	preds    prediction.Repository
	events   prediction.EventRepository
	trainer  Trainer
	swapper  ModelSwapper
	log      *logger.Logger

	mu       sync.Mutex
	training map[string]bool
}

// New creates a learner. swapper may be nil when no live classifier is
// running.
func New(cfg Config, source AccuracySource, preds prediction.Repository, events prediction.EventRepository, trainer Trainer, swapper ModelSwapper) *Learner {
	return &Learner{
		cfg:      cfg,
		source:   source,
		preds:    preds,
		events:   events,
		trainer:  trainer,
		swapper:  swapper,
		log:      logger.Get().With("component", "continuous_learner"),
		training: make(map[string]bool),
	}
}

// ShouldRetrain evaluates the triggers in fixed priority order: time,
// performance, volume. The first satisfied trigger wins.
func (l *Learner) ShouldRetrain(ctx context.Context, symbol string, now time.Time) (Decision, error) {
	last, err := l.events.Latest(ctx, symbol)
	if err != nil {
		return Decision{}, errors.Wrap(err, "failed to load last retraining event")
	}

	if last == nil {
		return Decision{
			Retrain: true,
			Trigger: prediction.TriggerTime,
			Reason:  "model never trained",
		}, nil
	}

	if age := now.Sub(last.Timestamp); age >= l.cfg.RetrainInterval {
		return Decision{
			Retrain: true,
			Trigger: prediction.TriggerTime,
			Reason:  "last training " + humanize.RelTime(last.Timestamp, now, "ago", "from now"),
		}, nil
	}

	report, err := l.source.Accuracy(ctx, symbol, l.cfg.AccuracyWindow)
	if err != nil {
		return Decision{}, errors.Wrap(err, "failed to measure accuracy")
	}
	if report.Total >= l.cfg.MinVerifiedForAccuracy && report.Accuracy < l.cfg.AccuracyFloor {
		return Decision{
			Retrain: true,
			Trigger: prediction.TriggerPerformance,
			Reason:  "accuracy below floor",
		}, nil
	}

	newCount, err := l.preds.CountVerifiedSince(ctx, symbol, last.Timestamp)
	if err != nil {
		return Decision{}, errors.Wrap(err, "failed to count new verifications")
	}
	if newCount >= l.cfg.NewSamplesThreshold {
		return Decision{
			Retrain: true,
			Trigger: prediction.TriggerVolume,
			Reason:  humanize.Comma(int64(newCount)) + " predictions verified since last training",
		}, nil
	}

	return Decision{Trigger: prediction.TriggerNone}, nil
}

// Retrain runs one training pass and appends the retraining event on
// success. A cancelled run appends nothing and leaves the old model in
// place. Only one retrain per symbol runs at a time.
func (l *Learner) Retrain(ctx context.Context, symbol string, trigger prediction.TriggerReason) (*prediction.RetrainingEvent, error) {
	if !l.acquire(symbol) {
		return nil, errors.Wrapf(errors.ErrRetrainInProgress, "symbol %s", symbol)
	}
	defer l.release(symbol)

	started := time.Now().UTC()

	before, err := l.source.Accuracy(ctx, symbol, l.cfg.AccuracyWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to measure pre-training accuracy")
	}

	samples, err := l.source.TrainingData(ctx, symbol, time.Time{}, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to export training data")
	}
	if len(samples) < l.cfg.MinTrainingSamples {
		return nil, errors.Wrapf(errors.ErrInsufficientTrainingData,
			"have %d samples, need %d", len(samples), l.cfg.MinTrainingSamples)
	}

	versionBefore := ""
	if l.swapper != nil {
		versionBefore = l.swapper.Version()
	}

	l.log.Infow("retraining started",
		"symbol", symbol,
		"trigger", trigger,
		"samples", humanize.Comma(int64(len(samples))),
		"accuracy_before", before.Accuracy,
	)

	result, err := l.trainer.Train(ctx, symbol, samples)
	if err != nil {
		if errors.Is(err, errors.ErrTrainingCancelled) || ctx.Err() != nil {
			l.log.Warnw("retraining cancelled, keeping current model",
				"symbol", symbol, "error", err)
			return nil, errors.Wrap(errors.ErrTrainingCancelled, "retraining aborted")
		}
		return nil, errors.Wrap(err, "training failed")
	}
	if err := ctx.Err(); err != nil {
		l.log.Warnw("retraining cancelled after training, keeping current model",
			"symbol", symbol, "error", err)
		return nil, errors.Wrap(errors.ErrTrainingCancelled, "retraining aborted")
	}

	if l.swapper != nil && result.ModelPath != "" {
		if err := l.swapper.Swap(result.ModelPath, result.Version); err != nil {
			return nil, errors.Wrap(err, "failed to install trained model")
		}
	}

	ev := &prediction.RetrainingEvent{
		ID:                 uuid.New(),
		Symbol:             symbol,
		Timestamp:          time.Now().UTC(),
		Trigger:            trigger,
		ModelVersionBefore: versionBefore,
		ModelVersionAfter:  result.Version,
		AccuracyBefore:     before.Accuracy,
		AccuracyAfter:      result.Accuracy,
		Duration:           time.Since(started),
	}
	if err := l.events.Append(ctx, ev); err != nil {
		return nil, errors.Wrap(err, "failed to record retraining event")
	}

	l.log.Infow("retraining complete",
		"symbol", symbol,
		"version", result.Version,
		"accuracy_after", result.Accuracy,
		"duration", ev.Duration,
	)
	return ev, nil
}

// Stats summarizes the learning loop for a symbol.
func (l *Learner) Stats(ctx context.Context, symbol string) (*LearningStats, error) {
	stats := &LearningStats{Symbol: symbol}
	if l.swapper != nil {
		stats.ModelVersion = l.swapper.Version()
	}

	last, err := l.events.Latest(ctx, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load last retraining event")
	}
	if last != nil {
		ts := last.Timestamp
		stats.LastTrainedAt = &ts
		stats.NextTimeTrigger = ts.Add(l.cfg.RetrainInterval)

		count, err := l.preds.CountVerifiedSince(ctx, symbol, ts)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count new verifications")
		}
		stats.VerifiedSinceLast = count
	}

	history, err := l.events.List(ctx, symbol, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load retraining history")
	}
	stats.RetrainCount = len(history)

	report, err := l.source.Accuracy(ctx, symbol, l.cfg.AccuracyWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to measure accuracy")
	}
	stats.CurrentAccuracy = report.Accuracy
	stats.AccuracySamples = report.Total
	return stats, nil
}

func (l *Learner) acquire(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.training[symbol] {
		return false
	}
	l.training[symbol] = true
	return true
}

func (l *Learner) release(symbol string) {
	l.mu.Lock()
	delete(l.training, symbol)
	l.mu.Unlock()
}
