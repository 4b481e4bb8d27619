// Package heatmap aggregates saved strategies by tag for the strategy heatmap.
package heatmap

import (
	"sort"
	"strings"

	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/logging"
	"github.com/jwtly10/insightflow/internal/types"
)

var log = logging.New("heatmap")

type bucket struct {
	display  string
	count    int
	winRate  float64 // sum of fractional win rates
	emotions map[types.Emotion]int
}

// Build returns one HeatmapTag per distinct tag, grouped case-insensitively and
// sorted by count descending. Ties keep the order in which tags were first
// seen. The displayed tag keeps the casing of its first occurrence.
//
// Win rates are averaged as fractions and reported as a percentage rounded to
// one place. The dominant emotion is the most frequent one, ties going to the
// earlier entry of types.Emotions.
func Build(strategies []types.Strategy) []types.HeatmapTag {
	var order []string
	buckets := make(map[string]*bucket)

	for _, s := range strategies {
		seen := make(map[string]bool, len(s.Tags))
		for _, tag := range s.Tags {
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true

			b, ok := buckets[key]
			if !ok {
				b = &bucket{display: tag, emotions: make(map[types.Emotion]int)}
				buckets[key] = b
				order = append(order, key)
			}
			b.count++
			b.winRate += s.WinRate
			b.emotions[s.Emotion]++
		}
	}

	tags := make([]types.HeatmapTag, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		tags = append(tags, types.HeatmapTag{
			Tag:             b.display,
			Count:           b.count,
			AvgWinRate:      backtest.Round(b.winRate/float64(b.count)*100, 1),
			DominantEmotion: dominant(b.emotions),
		})
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Count > tags[j].Count
	})

	log.Debug("Built heatmap", "strategies", len(strategies), "tags", len(tags))
	return tags
}

func dominant(counts map[types.Emotion]int) types.Emotion {
	best, bestCount := types.Neutral, 0
	for _, e := range types.Emotions {
		if counts[e] > bestCount {
			best, bestCount = e, counts[e]
		}
	}
	return best
}
