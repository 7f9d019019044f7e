package analysis

import (
	"context"
	"time"

	"augur/internal/domain/market_data"
	"augur/internal/metrics"
	"augur/internal/tracker"
	"augur/internal/workers"
)

// VerificationWorker grades pending predictions whose verification
// window has elapsed against the latest realized price.
type VerificationWorker struct {
	*workers.BaseWorker
	tracker *tracker.Tracker
	bars    market_data.Repository
	symbols []string

	// accuracyWindow drives the exported accuracy gauge.
	accuracyWindow time.Duration
}

// NewVerificationWorker creates the verification worker.
func NewVerificationWorker(trk *tracker.Tracker, bars market_data.Repository, symbols []string, interval, accuracyWindow time.Duration) *VerificationWorker {
	if accuracyWindow <= 0 {
		accuracyWindow = 7 * 24 * time.Hour
	}
	return &VerificationWorker{
		BaseWorker:     workers.NewBaseWorker("prediction_verification", interval, true),
		tracker:        trk,
		bars:           bars,
		symbols:        symbols,
		accuracyWindow: accuracyWindow,
	}
}

// Run verifies due predictions for every tracked symbol and refreshes
// the accuracy gauge.
func (w *VerificationWorker) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now().UTC()

	for _, symbol := range w.symbols {
		price, _, err := w.bars.LatestPrice(ctx, symbol)
		if err != nil {
			w.Log().Warnw("no price for verification", "symbol", symbol, "error", err)
			continue
		}

		count, err := w.tracker.VerifyDue(ctx, symbol, price, now)
		if err != nil {
			w.Log().Warnw("verification pass failed", "symbol", symbol, "error", err)
			continue
		}
		if count == 0 {
			continue
		}

		report, err := w.tracker.Accuracy(ctx, symbol, w.accuracyWindow)
		if err != nil {
			w.Log().Warnw("accuracy refresh failed", "symbol", symbol, "error", err)
			continue
		}
		if report.HasData() {
			metrics.PredictionAccuracy.WithLabelValues(symbol).Set(report.Accuracy)
		}
	}

	w.RecordRun(time.Since(start))
	return nil
}
