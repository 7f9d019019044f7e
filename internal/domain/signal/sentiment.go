package signal

// Sentiment is the directional read of a market.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Valid reports whether the sentiment is one of the known values.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return true
	}
	return false
}

// Direction maps the sentiment onto {-1, 0, +1}.
func (s Sentiment) Direction() float64 {
	switch s {
	case SentimentBullish:
		return 1
	case SentimentBearish:
		return -1
	}
	return 0
}

// FromDirection converts a signed score into a sentiment. Zero maps to
// neutral.
func FromDirection(v float64) Sentiment {
	switch {
	case v > 0:
		return SentimentBullish
	case v < 0:
		return SentimentBearish
	}
	return SentimentNeutral
}

// StructureTrend is the prevailing structural trend derived from swing
// progression (higher highs / lower lows). It is a context input for
// scoring and threshold decisions, never persisted.
type StructureTrend string

const (
	TrendUp      StructureTrend = "uptrend"
	TrendDown    StructureTrend = "downtrend"
	TrendRanging StructureTrend = "ranging"
)

// Agrees reports whether a directional sentiment goes with the trend.
func (t StructureTrend) Agrees(s Sentiment) bool {
	return (t == TrendUp && s == SentimentBullish) ||
		(t == TrendDown && s == SentimentBearish)
}
