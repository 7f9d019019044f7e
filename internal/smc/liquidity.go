package smc

import (
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/ranges"
)

// detectLiquidityZones clusters equal highs and equal lows into
// resting-liquidity levels. Tolerance scales with ATR. Equal lows form
// a bullish support zone (sell-side stops below), equal highs a
// bearish resistance zone.
func (d *Detector) detectLiquidityZones(symbol string, tf signal.Timeframe, bars []market_data.Bar, atr float64) []*signal.SMCElement {
	if atr <= 0 {
		return nil
	}
	tolerance := d.cfg.ClusterATRFactor * atr

	highs := findSwingHighs(bars, d.cfg.SwingLookback)
	lows := findSwingLows(bars, d.cfg.SwingLookback)

	elements := make([]*signal.SMCElement, 0)

	// Zones need nonzero width even when the swing prices are exactly
	// equal; pad narrow clusters to a sliver of ATR.
	minWidth := 0.1 * atr

	for _, cluster := range clusterPoints(highs, tolerance) {
		if len(cluster) < d.cfg.MinClusterSize {
			continue
		}
		pr, barIdx := clusterRange(cluster)
		elements = append(elements, signal.NewSMCElement(
			symbol, tf, signal.KindLiquidityZone, signal.SentimentBearish,
			padRange(pr, minWidth), barIdx, bars[barIdx].OpenTime,
			liquidityStrength(len(cluster)),
		))
	}

	for _, cluster := range clusterPoints(lows, tolerance) {
		if len(cluster) < d.cfg.MinClusterSize {
			continue
		}
		pr, barIdx := clusterRange(cluster)
		elements = append(elements, signal.NewSMCElement(
			symbol, tf, signal.KindLiquidityZone, signal.SentimentBullish,
			padRange(pr, minWidth), barIdx, bars[barIdx].OpenTime,
			liquidityStrength(len(cluster)),
		))
	}

	return elements
}

// clusterPoints greedily groups swing points lying within tolerance of
// the cluster seed.
func clusterPoints(points []swingPoint, tolerance float64) [][]swingPoint {
	clusters := make([][]swingPoint, 0)
	used := make([]bool, len(points))

	for i, seed := range points {
		if used[i] {
			continue
		}
		cluster := []swingPoint{seed}
		used[i] = true

		for j := i + 1; j < len(points); j++ {
			if used[j] {
				continue
			}
			diff := seed.price - points[j].price
			if diff < 0 {
				diff = -diff
			}
			if diff <= tolerance {
				cluster = append(cluster, points[j])
				used[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// clusterRange returns the price span of a cluster and the index of
// its most recent member. A single-price cluster keeps zero width and
// acts as a level.
func clusterRange(cluster []swingPoint) (ranges.Range, int) {
	low, high := cluster[0].price, cluster[0].price
	barIdx := cluster[0].index
	for _, p := range cluster[1:] {
		if p.price < low {
			low = p.price
		}
		if p.price > high {
			high = p.price
		}
		if p.index > barIdx {
			barIdx = p.index
		}
	}
	return ranges.Range{Low: low, High: high}, barIdx
}

// padRange widens a range symmetrically up to minWidth.
func padRange(pr ranges.Range, minWidth float64) ranges.Range {
	if pr.Width() >= minWidth {
		return pr
	}
	mid := pr.Mid()
	return ranges.Range{Low: mid - minWidth/2, High: mid + minWidth/2}
}

// liquidityStrength grades a zone by how many swing points rest on it.
func liquidityStrength(density int) float64 {
	switch {
	case density >= 5:
		return 0.9
	case density >= 3:
		return 0.7
	}
	return 0.5
}
