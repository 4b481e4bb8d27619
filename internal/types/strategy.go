package types

type Emotion string

const (
	Disciplined Emotion = "Disciplined"
	Aggressive  Emotion = "Aggressive"
	Fearful     Emotion = "Fearful"
	Neutral     Emotion = "Neutral"
)

// Emotions is the fixed order used when breaking dominant-emotion ties.
var Emotions = []Emotion{Disciplined, Aggressive, Fearful, Neutral}

func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// Strategy is a saved trading strategy. WinRate is a fraction in [0,1].
type Strategy struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Tags    []string `json:"tags"`
	WinRate float64  `json:"winRate"`
	Emotion Emotion  `json:"emotion"`
}

// HeatmapTag is the per-tag aggregate over a set of strategies.
// AvgWinRate is a percentage.
type HeatmapTag struct {
	Tag             string  `json:"tag"`
	Count           int     `json:"count"`
	AvgWinRate      float64 `json:"avgWinRate"`
	DominantEmotion Emotion `json:"dominantEmotion"`
}
