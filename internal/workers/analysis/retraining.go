package analysis

import (
	"context"
	"time"

	"augur/internal/domain/prediction"
	"augur/internal/learner"
	"augur/internal/metrics"
	"augur/internal/workers"
	"augur/pkg/errors"
)

// RetrainingPublisher announces completed retraining runs.
type RetrainingPublisher interface {
	PublishRetraining(ctx context.Context, ev *prediction.RetrainingEvent) error
}

// RetrainingWorker periodically asks the continuous learner whether
// any model needs retraining and runs the retrain when it does.
type RetrainingWorker struct {
	*workers.BaseWorker
	learner   *learner.Learner
	publisher RetrainingPublisher
	symbols   []string
}

// NewRetrainingWorker creates the retraining worker. publisher may be
// nil.
func NewRetrainingWorker(l *learner.Learner, publisher RetrainingPublisher, symbols []string, interval time.Duration) *RetrainingWorker {
	return &RetrainingWorker{
		BaseWorker: workers.NewBaseWorker("model_retraining", interval, true),
		learner:    l,
		publisher:  publisher,
		symbols:    symbols,
	}
}

// Run checks the triggers for every symbol and retrains where needed.
func (w *RetrainingWorker) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now().UTC()

	for _, symbol := range w.symbols {
		decision, err := w.learner.ShouldRetrain(ctx, symbol, now)
		if err != nil {
			w.Log().Warnw("trigger evaluation failed", "symbol", symbol, "error", err)
			continue
		}
		if !decision.Retrain {
			continue
		}

		w.Log().Infow("retraining triggered",
			"symbol", symbol, "trigger", decision.Trigger, "reason", decision.Reason)
		w.retrain(ctx, symbol, decision.Trigger)
	}

	w.RecordRun(time.Since(start))
	return nil
}

func (w *RetrainingWorker) retrain(ctx context.Context, symbol string, trigger prediction.TriggerReason) {
	start := time.Now()

	ev, err := w.learner.Retrain(ctx, symbol, trigger)
	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, errors.ErrRetrainInProgress):
			w.Log().Infow("retrain already running", "symbol", symbol)
			return
		case errors.Is(err, errors.ErrTrainingCancelled):
			status = "cancelled"
		case errors.Is(err, errors.ErrInsufficientTrainingData):
			w.Log().Infow("not enough training data yet", "symbol", symbol, "error", err)
			return
		}
		metrics.Retrainings.WithLabelValues(symbol, string(trigger), status).Inc()
		w.Log().Warnw("retraining failed", "symbol", symbol, "error", err)
		return
	}

	metrics.Retrainings.WithLabelValues(symbol, string(trigger), "success").Inc()
	metrics.RetrainingDuration.WithLabelValues(symbol).Observe(time.Since(start).Seconds())

	if w.publisher != nil {
		if err := w.publisher.PublishRetraining(ctx, ev); err != nil {
			w.Log().Warnw("failed to publish retraining event", "symbol", symbol, "error", err)
		}
	}
}
