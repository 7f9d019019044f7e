package engine

import (
	"context"
	"sort"
	"time"

	"augur/internal/confluence"
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/internal/indicators"
	"augur/internal/scoring"
	"augur/internal/smc"
	"augur/pkg/errors"
	"augur/pkg/logger"
	"augur/pkg/ranges"
)

// EnsemblePredictor is the trained ML ensemble consulted as one vote
// in the per-timeframe decision. Optional: a nil predictor simply
// redistributes its weight.
type EnsemblePredictor interface {
	PredictSentiment(snap *indicators.Snapshot, smcDirection float64, trend signal.StructureTrend) (signal.Sentiment, float64, error)
	Version() string
}

// SentimentPublisher pushes finished evaluations to downstream
// consumers.
type SentimentPublisher interface {
	PublishSentiment(ctx context.Context, agg signal.AggregatedSentiment) error
}

// SentimentCache keeps the latest evaluation per symbol for cheap
// reads.
type SentimentCache interface {
	SetLatest(ctx context.Context, agg signal.AggregatedSentiment) error
}

// Config holds engine-level settings.
type Config struct {
	// BarCount is how much history each timeframe evaluation loads.
	BarCount int

	// Weights distributes the raw score across components.
	Weights Weights

	// Threshold is the dynamic acceptance threshold policy.
	Threshold ThresholdPolicy

	// KeyLevelCount caps how many top signal ranges each timeframe
	// surfaces to cross-timeframe confluence.
	KeyLevelCount int
}

// elementHistoryLimit caps how many stored elements, active or
// invalidated, one timeframe evaluation loads for dedup and scoring.
const elementHistoryLimit = 500

// DefaultEngineConfig returns production engine settings.
func DefaultEngineConfig() Config {
	return Config{
		BarCount:      250,
		Weights:       DefaultWeights(),
		Threshold:     DefaultThresholdPolicy(),
		KeyLevelCount: 3,
	}
}

// Validate fails fast on invalid weights or threshold bounds.
func (c Config) Validate() error {
	if c.BarCount < indicators.MinBars {
		return errors.NewValidationError("engine.bar_count", "below indicator minimum", c.BarCount)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return c.Threshold.Validate()
}

// Engine runs the full per-symbol evaluation: detection, scoring,
// confluence, per-timeframe decision and multi-timeframe aggregation.
// Each call works on a consistent snapshot of bar history and shares
// no mutable state with concurrent calls for other series.
type Engine struct {
	cfg        Config
	bars       market_data.Repository
	elements   signal.ElementRepository
	detector   *smc.Detector
	scorer     *scoring.Scorer
	confluence *confluence.Detector
	bank       *indicators.Bank
	aggregator *Aggregator
	predictor  EnsemblePredictor
	publisher  SentimentPublisher
	cache      SentimentCache
	log        *logger.Logger
}

// New wires an engine. predictor, publisher and cache may be nil.
func New(
	cfg Config,
	bars market_data.Repository,
	elements signal.ElementRepository,
	detector *smc.Detector,
	scorer *scoring.Scorer,
	confluenceDet *confluence.Detector,
	bank *indicators.Bank,
	aggregator *Aggregator,
	predictor EnsemblePredictor,
	publisher SentimentPublisher,
	cache SentimentCache,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		bars:       bars,
		elements:   elements,
		detector:   detector,
		scorer:     scorer,
		confluence: confluenceDet,
		bank:       bank,
		aggregator: aggregator,
		predictor:  predictor,
		publisher:  publisher,
		cache:      cache,
		log:        logger.Get().With("component", "engine"),
	}, nil
}

// ModelVersion names the active model, falling back to the rule-based
// version string when no ensemble is loaded.
func (e *Engine) ModelVersion() string {
	if e.predictor != nil {
		return e.predictor.Version()
	}
	return "rules-v1"
}

// Evaluate produces the aggregated sentiment for a symbol across the
// given timeframes. A timeframe that cannot be evaluated (usually
// insufficient history) is skipped and logged; the call fails only
// when every timeframe fails.
func (e *Engine) Evaluate(ctx context.Context, symbol string, tfs []signal.Timeframe) (*signal.AggregatedSentiment, error) {
	if len(tfs) == 0 {
		tfs = signal.DefaultTimeframes
	}
	evaluatedAt := time.Now().UTC()

	results := make([]signal.TimeframeSentiment, 0, len(tfs))
	var price float64

	for _, tf := range tfs {
		ts, lastClose, err := e.evaluateTimeframe(ctx, symbol, tf, evaluatedAt)
		if err != nil {
			e.log.Warnw("timeframe evaluation skipped",
				"symbol", symbol, "timeframe", tf, "error", err)
			continue
		}
		results = append(results, ts)
		if price == 0 {
			price = lastClose
		}
	}

	if len(results) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable,
			"no timeframe could be evaluated for %s", symbol)
	}

	agg := e.aggregator.Aggregate(symbol, evaluatedAt, results, price, e.ModelVersion())

	if e.cache != nil {
		if err := e.cache.SetLatest(ctx, agg); err != nil {
			e.log.Warnw("failed to cache sentiment", "symbol", symbol, "error", err)
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishSentiment(ctx, agg); err != nil {
			e.log.Warnw("failed to publish sentiment", "symbol", symbol, "error", err)
		}
	}

	e.log.Infow("evaluation complete",
		"symbol", symbol,
		"dominant", agg.Dominant,
		"confidence", agg.Confidence,
		"alignment", agg.AlignmentScore,
		"timeframes", len(results),
	)
	return &agg, nil
}

// evaluateTimeframe runs one timeframe end to end and returns its
// sentiment plus the latest close.
func (e *Engine) evaluateTimeframe(ctx context.Context, symbol string, tf signal.Timeframe, evaluatedAt time.Time) (signal.TimeframeSentiment, float64, error) {
	var zero signal.TimeframeSentiment

	bars, err := e.bars.GetBars(ctx, symbol, string(tf), e.cfg.BarCount)
	if err != nil {
		return zero, 0, err
	}
	if len(bars) < indicators.MinBars {
		return zero, 0, errors.Wrapf(errors.ErrDataUnavailable,
			"%s %s: %d bars below minimum %d", symbol, tf, len(bars), indicators.MinBars)
	}
	latest := bars[len(bars)-1]

	// Invalidated elements must stay in the dedup set: invalidation is
	// terminal, and a dead zone still inside the bar window would
	// otherwise be re-detected as a fresh element.
	stored, err := e.elements.List(ctx, symbol, tf, elementHistoryLimit)
	if err != nil {
		e.log.Warnw("could not load stored elements, detecting from scratch",
			"symbol", symbol, "timeframe", tf, "error", err)
		stored = nil
	}

	detection := e.detector.Detect(symbol, tf, bars, stored)

	// Single writer per series: mitigation state advances here, under
	// the caller's per-series serialization.
	changed := e.scorer.UpdateMitigation(stored, latest)
	toSave := append(changed, detection.NewElements...)
	if len(toSave) > 0 {
		if err := e.elements.SaveBatch(ctx, toSave); err != nil {
			e.log.Warnw("failed to persist element state",
				"symbol", symbol, "timeframe", tf, "error", err)
		}
	}

	active := make([]*signal.SMCElement, 0, len(stored)+len(detection.NewElements))
	for _, el := range stored {
		if el.Active {
			active = append(active, el)
		}
	}
	active = append(active, detection.NewElements...)

	scored := e.scorer.Score(active, latest.OpenTime, detection.ATR, detection.Trend)

	snap, err := e.bank.Compute(bars)
	if err != nil {
		return zero, 0, err
	}

	threshold := e.cfg.Threshold.Compute(snap.ADX14, snap.ATRRatio)
	zones := e.confluence.Find(scored, detection.ATR, equilibrium(bars))

	smcDir := smcScore(scored)

	mlScore := 0.0
	mlAvailable := false
	if e.predictor != nil {
		sentiment, conf, err := e.predictor.PredictSentiment(snap, smcDir, detection.Trend)
		if err != nil {
			e.log.Warnw("ensemble prediction failed, continuing without",
				"symbol", symbol, "timeframe", tf, "error", err)
		} else {
			mlScore = sentiment.Direction() * conf
			mlAvailable = true
		}
	}

	ts := decide(decisionInput{
		Symbol:         symbol,
		Timeframe:      tf,
		EvaluatedAt:    evaluatedAt,
		IndicatorScore: snap.Score(),
		SMCScore:       smcDir,
		MLScore:        mlScore,
		MLAvailable:    mlAvailable,
		Confluence:     confluenceScore(zones),
		KeyLevels:      keyLevels(scored, zones, e.cfg.KeyLevelCount),
	}, e.cfg.Weights, threshold)

	return ts, latest.Close, nil
}

// equilibrium is the midpoint of the window's full swing range, used
// for premium/discount alignment.
func equilibrium(bars []market_data.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	high, low := bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return (high + low) / 2
}

// keyLevels surfaces the strongest signal ranges plus all confluence
// zones for cross-timeframe matching.
func keyLevels(scored []signal.ScoredSignal, zones []signal.ConfluenceZone, topN int) []ranges.Range {
	sorted := make([]signal.ScoredSignal, len(scored))
	copy(sorted, scored)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].QualityScore > sorted[j].QualityScore
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	levels := make([]ranges.Range, 0, len(sorted)+len(zones))
	for _, sc := range sorted {
		levels = append(levels, sc.Element.PriceRange)
	}
	for _, z := range zones {
		levels = append(levels, z.PriceRange)
	}
	return levels
}
