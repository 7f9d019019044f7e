package analysis

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"augur/internal/domain/signal"
	"augur/internal/engine"
	"augur/internal/metrics"
	"augur/internal/tracker"
	"augur/internal/workers"
)

// EvaluationWorker runs the full sentiment evaluation for each tracked
// symbol and records every per-timeframe verdict as a pending
// prediction. A shared rate limiter keeps database pressure flat when
// many symbols are tracked.
type EvaluationWorker struct {
	*workers.BaseWorker
	engine     *engine.Engine
	tracker    *tracker.Tracker
	symbols    []string
	timeframes []signal.Timeframe
	limiter    *rate.Limiter
}

// NewEvaluationWorker creates the evaluation worker. evaluationsPerSec
// caps engine runs across symbols.
func NewEvaluationWorker(eng *engine.Engine, trk *tracker.Tracker, symbols []string, timeframes []signal.Timeframe, interval time.Duration, evaluationsPerSec float64) *EvaluationWorker {
	if len(timeframes) == 0 {
		timeframes = signal.DefaultTimeframes
	}
	if evaluationsPerSec <= 0 {
		evaluationsPerSec = 2
	}
	return &EvaluationWorker{
		BaseWorker: workers.NewBaseWorker("sentiment_evaluation", interval, true),
		engine:     eng,
		tracker:    trk,
		symbols:    symbols,
		timeframes: timeframes,
		limiter:    rate.NewLimiter(rate.Limit(evaluationsPerSec), 1),
	}
}

// Run evaluates all tracked symbols once. A failing symbol is logged
// and skipped; the iteration continues.
func (w *EvaluationWorker) Run(ctx context.Context) error {
	start := time.Now()

	for _, symbol := range w.symbols {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		w.evaluateSymbol(ctx, symbol)
	}

	w.RecordRun(time.Since(start))
	return nil
}

func (w *EvaluationWorker) evaluateSymbol(ctx context.Context, symbol string) {
	start := time.Now()

	agg, err := w.engine.Evaluate(ctx, symbol, w.timeframes)
	metrics.RecordEvaluation(symbol, time.Since(start), err)
	if err != nil {
		w.Log().Warnw("evaluation failed", "symbol", symbol, "error", err)
		return
	}

	metrics.RecordSentiment(symbol, agg.Dominant.Direction(), agg.Confidence)

	// Every per-timeframe verdict becomes a pending prediction so the
	// learning loop can grade it later.
	for _, ts := range agg.ByTimeframe {
		p, err := w.tracker.Record(ctx, ts, agg.PriceAtEval, agg.ModelVersion)
		if err != nil {
			w.Log().Warnw("failed to record prediction",
				"symbol", symbol, "timeframe", ts.Timeframe, "error", err)
			continue
		}
		metrics.PredictionsRecorded.WithLabelValues(
			p.Symbol, string(p.Timeframe), string(p.Sentiment)).Inc()
	}
}
