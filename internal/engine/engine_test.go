package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/confluence"
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/internal/indicators"
	"augur/internal/scoring"
	"augur/internal/smc"
	"augur/internal/testsupport"
	"augur/pkg/errors"
)

type stubPredictor struct {
	sentiment signal.Sentiment
	conf      float64
	err       error
}

func (p *stubPredictor) PredictSentiment(*indicators.Snapshot, float64, signal.StructureTrend) (signal.Sentiment, float64, error) {
	return p.sentiment, p.conf, p.err
}

func (p *stubPredictor) Version() string { return "test-v1" }

type captureSink struct {
	published []signal.AggregatedSentiment
	cached    []signal.AggregatedSentiment
}

func (c *captureSink) PublishSentiment(_ context.Context, agg signal.AggregatedSentiment) error {
	c.published = append(c.published, agg)
	return nil
}

func (c *captureSink) SetLatest(_ context.Context, agg signal.AggregatedSentiment) error {
	c.cached = append(c.cached, agg)
	return nil
}

// upSeries is a drifting triangle wave: clean higher highs and higher
// lows with enough bars to warm every indicator up.
func upSeries(n int) []market_data.Bar {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]market_data.Bar, 0, n)
	prev := 0.0
	for i := 0; i < n; i++ {
		pos := i % 12
		tri := float64(pos)
		if pos > 6 {
			tri = float64(12 - pos)
		}
		c := 100 + 0.25*float64(i) + tri
		rising := i == 0 || c > prev
		prev = c

		bar := market_data.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "H1",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Close:     c,
			Volume:    1000 + 10*float64(i),
		}
		if rising {
			bar.Open, bar.High, bar.Low = c-0.3, c+0.1, c-0.4
		} else {
			bar.Open, bar.High, bar.Low = c+0.3, c+0.4, c-0.1
		}
		bars = append(bars, bar)
	}
	return bars
}

func newTestEngine(t *testing.T, bars *testsupport.BarStore, els *testsupport.ElementStore, predictor EnsemblePredictor, sink *captureSink) *Engine {
	t.Helper()

	var publisher SentimentPublisher
	var cache SentimentCache
	if sink != nil {
		publisher = sink
		cache = sink
	}

	eng, err := New(
		DefaultEngineConfig(),
		bars,
		els,
		smc.NewDetector(smc.DefaultConfig()),
		scoring.NewScorer(scoring.DefaultConfig()),
		confluence.NewDetector(confluence.DefaultConfig()),
		indicators.NewBank(0),
		DefaultAggregator(),
		predictor,
		publisher,
		cache,
	)
	require.NoError(t, err)
	return eng
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultEngineConfig().Validate())

	short := DefaultEngineConfig()
	short.BarCount = 10
	assert.Error(t, short.Validate())

	bad := DefaultEngineConfig()
	bad.Weights.SMC = 0.9
	assert.Error(t, bad.Validate())
}

func TestEvaluateNoData(t *testing.T) {
	eng := newTestEngine(t, testsupport.NewBarStore(), testsupport.NewElementStore(), nil, nil)

	_, err := eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestEvaluateSingleTimeframe(t *testing.T) {
	bars := testsupport.NewBarStore()
	series := upSeries(80)
	bars.SetBars("BTCUSDT", "H1", series)
	els := testsupport.NewElementStore()
	sink := &captureSink{}

	eng := newTestEngine(t, bars, els, nil, sink)

	agg, err := eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)
	require.Len(t, agg.ByTimeframe, 1)

	ts := agg.ByTimeframe[0]
	assert.Equal(t, signal.TimeframeH1, ts.Timeframe)
	assert.GreaterOrEqual(t, ts.ThresholdUsed, 0.25)
	assert.LessOrEqual(t, ts.ThresholdUsed, 0.50)
	assert.GreaterOrEqual(t, ts.RawScore, -1.0)
	assert.LessOrEqual(t, ts.RawScore, 1.0)
	assert.GreaterOrEqual(t, ts.Confidence, 0.0)
	assert.LessOrEqual(t, ts.Confidence, 1.0)
	assert.Zero(t, ts.MLScore, "no predictor wired")

	assert.Equal(t, series[len(series)-1].Close, agg.PriceAtEval)
	assert.Equal(t, "rules-v1", agg.ModelVersion)

	require.Len(t, sink.published, 1)
	require.Len(t, sink.cached, 1)

	// A second pass works off the persisted element state.
	_, err = eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)
}

// obSeries is a quiet range ending in a bearish candle and a strong
// three-bar rally, the classic bullish order block footprint.
func obSeries(n int) []market_data.Bar {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bar := func(i int, o, h, l, c float64) market_data.Bar {
		return market_data.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "H1",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    1000,
		}
	}
	bars := make([]market_data.Bar, 0, n)
	for i := 0; i < n-4; i++ {
		if i%2 == 0 {
			bars = append(bars, bar(i, 100.0, 100.5, 99.7, 100.2))
		} else {
			bars = append(bars, bar(i, 100.2, 100.5, 99.7, 100.0))
		}
	}
	bars = append(bars,
		bar(n-4, 100.3, 100.4, 99.4, 99.5),
		bar(n-3, 99.5, 101.5, 99.4, 101.4),
		bar(n-2, 101.4, 103.4, 101.3, 103.3),
		bar(n-1, 103.3, 105.3, 103.2, 105.2),
	)
	return bars
}

func TestEvaluateDoesNotResurrectInvalidatedElements(t *testing.T) {
	bars := testsupport.NewBarStore()
	bars.SetBars("BTCUSDT", "H1", obSeries(80))
	els := testsupport.NewElementStore()

	eng := newTestEngine(t, bars, els, nil, nil)

	_, err := eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)

	stored, err := els.List(context.Background(), "BTCUSDT", signal.TimeframeH1, 0)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	for _, el := range stored {
		el.Invalidate()
	}
	require.NoError(t, els.SaveBatch(context.Background(), stored))

	// The same window rescanned must not rebuild the dead zones as
	// fresh elements with full strength.
	_, err = eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)

	after, err := els.List(context.Background(), "BTCUSDT", signal.TimeframeH1, 0)
	require.NoError(t, err)
	require.Len(t, after, len(stored))
	for _, el := range after {
		assert.False(t, el.Active)
	}
}

func TestEvaluateSkipsUnavailableTimeframes(t *testing.T) {
	bars := testsupport.NewBarStore()
	bars.SetBars("BTCUSDT", "H1", upSeries(80))
	bars.SetBars("BTCUSDT", "H4", upSeries(10))

	eng := newTestEngine(t, bars, testsupport.NewElementStore(), nil, nil)

	agg, err := eng.Evaluate(context.Background(), "BTCUSDT",
		[]signal.Timeframe{signal.TimeframeH1, signal.TimeframeH4})
	require.NoError(t, err)
	assert.Len(t, agg.ByTimeframe, 1)
}

func TestEvaluateWithPredictor(t *testing.T) {
	bars := testsupport.NewBarStore()
	bars.SetBars("BTCUSDT", "H1", upSeries(80))

	predictor := &stubPredictor{sentiment: signal.SentimentBullish, conf: 0.9}
	eng := newTestEngine(t, bars, testsupport.NewElementStore(), predictor, nil)

	agg, err := eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)
	require.Len(t, agg.ByTimeframe, 1)

	assert.Equal(t, "test-v1", agg.ModelVersion)
	assert.InDelta(t, 0.9, agg.ByTimeframe[0].MLScore, 1e-9)
}

func TestEvaluatePredictorFailureTolerated(t *testing.T) {
	bars := testsupport.NewBarStore()
	bars.SetBars("BTCUSDT", "H1", upSeries(80))

	predictor := &stubPredictor{err: errors.New("model not warmed up")}
	eng := newTestEngine(t, bars, testsupport.NewElementStore(), predictor, nil)

	agg, err := eng.Evaluate(context.Background(), "BTCUSDT", []signal.Timeframe{signal.TimeframeH1})
	require.NoError(t, err)
	require.Len(t, agg.ByTimeframe, 1)
	assert.Zero(t, agg.ByTimeframe[0].MLScore, "failed prediction must not vote")
}

func TestModelVersionFallback(t *testing.T) {
	eng := newTestEngine(t, testsupport.NewBarStore(), testsupport.NewElementStore(), nil, nil)
	assert.Equal(t, "rules-v1", eng.ModelVersion())

	withModel := newTestEngine(t, testsupport.NewBarStore(), testsupport.NewElementStore(), &stubPredictor{}, nil)
	assert.Equal(t, "test-v1", withModel.ModelVersion())
}
