package emotion

import "math"

// Category is the simplified 3-way affect classification.
type Category string

const (
	Positive Category = "positive"
	Neutral  Category = "neutral"
	Negative Category = "negative"
)

// categoryOf maps each raw model class to its default category. happy and
// surprise get special weighted treatment in Classify and are listed here
// only for completeness.
var categoryOf = map[string]Category{
	"happy":    Positive,
	"surprise": Positive,
	"neutral":  Neutral,
	"sad":      Negative,
	"angry":    Negative,
	"fear":     Negative,
	"disgust":  Negative,
}

var emojiOf = map[Category]string{
	Positive: "😊",
	Neutral:  "😐",
	Negative: "😔",
}

var labelOf = map[Category]string{
	Positive: "Baik",
	Neutral:  "Netral",
	Negative: "Kurang Baik",
}

var colorOf = map[Category]string{
	Positive: "#22c55e",
	Neutral:  "#6b7280",
	Negative: "#ef4444",
}

// Outcome is the classified affect for one probe image.
type Outcome struct {
	Category   Category
	Confidence float64 // calibrated, 50-95
	Emoji      string
	Label      string // Indonesian display label
	Color      string // display color hex
}

// Fallback is returned when no emotion signal could be extracted. Emotion is
// advisory and must never block the attendance flow.
func Fallback() Outcome {
	return Outcome{
		Category:   Neutral,
		Confidence: 60.0,
		Emoji:      emojiOf[Neutral],
		Label:      labelOf[Neutral],
		Color:      colorOf[Neutral],
	}
}

// Classify turns raw 7-class percentages into a 3-way category with a
// calibrated confidence. rawScores values are percentages (0-100); a nil or
// empty map yields the neutral fallback.
//
// The raw model output is first remapped with asymmetric weights (happy is
// boosted, surprise split between positive and neutral), normalized, then
// calibrated by the margin between the top two categories, and finally run
// through a fixed sequence of override rules where later rules win.
func Classify(rawScores map[string]float64) Outcome {
	if len(rawScores) == 0 {
		return Fallback()
	}

	cat := remap(rawScores)

	// Ties resolve to the earlier category in positive, neutral, negative
	// order, so an exact positive/neutral tie reads as positive.
	dominant := Positive
	for _, c := range []Category{Neutral, Negative} {
		if cat[c] > cat[dominant] {
			dominant = c
		}
	}
	rawConfidence := cat[dominant]

	confidence := calibrate(dominant, rawConfidence, cat)

	// Override rules, evaluated in fixed order; later rules override earlier.
	positive := cat[Positive]
	neutral := cat[Neutral]

	// Rule 1: strong positive signal.
	if positive > 35 {
		dominant = Positive
		confidence = math.Min(90, 60+(positive-35))
	}

	// Rule 2: happy + surprise combined (pre-normalization raw shares).
	happySurprise := rawScores["happy"] + rawScores["surprise"]
	if happySurprise > 25 {
		dominant = Positive
		confidence = math.Min(88, 55+(happySurprise-25))
	}

	// Rule 3: very low confidence collapses to positive or neutral.
	if confidence < 45 {
		if positive > 20 {
			dominant = Positive
			confidence = 65
		} else {
			dominant = Neutral
			confidence = math.Max(60, confidence)
		}
	}

	// Rule 4: neutral dominant but positive is close behind.
	if dominant == Neutral && positive > neutral*0.7 && positive > 25 {
		dominant = Positive
		confidence = 70
	}

	return Outcome{
		Category:   dominant,
		Confidence: confidence,
		Emoji:      emojiOf[dominant],
		Label:      labelOf[dominant],
		Color:      colorOf[dominant],
	}
}

// remap applies the weighted 7→3 mapping and normalizes the category totals
// to sum to 100.
func remap(rawScores map[string]float64) map[Category]float64 {
	cat := map[Category]float64{Positive: 0, Neutral: 0, Negative: 0}

	for name, score := range rawScores {
		switch name {
		case "happy":
			cat[Positive] += score * 1.3
		case "surprise":
			cat[Positive] += score * 0.8
			cat[Neutral] += score * 0.2
		default:
			if c, ok := categoryOf[name]; ok {
				cat[c] += score
			}
		}
	}

	var total float64
	for _, v := range cat {
		total += v
	}
	if total > 0 {
		for k := range cat {
			cat[k] = cat[k] / total * 100
		}
	}
	return cat
}

// calibrate converts the dominant category's normalized share into a
// realistic confidence using the margin to the runner-up, then nudges by
// absolute score and category bias, clamped to [50, 95].
func calibrate(dominant Category, rawConfidence float64, cat map[Category]float64) float64 {
	var second float64
	for c, v := range cat {
		if c == dominant {
			continue
		}
		if v > second {
			second = v
		}
	}
	margin := rawConfidence - second

	var calibrated float64
	switch {
	case margin > 40:
		calibrated = math.Min(92, 70+(margin-40)*0.5)
	case margin > 25:
		calibrated = math.Min(85, 60+(margin-25)*0.6)
	case margin > 15:
		calibrated = math.Min(75, 55+(margin-15)*0.8)
	default:
		calibrated = math.Min(65, 50+margin)
	}

	if rawConfidence > 60 {
		calibrated += 5
	} else if rawConfidence < 40 {
		calibrated -= 5
	}

	// Optimism bias: nudge positive up, soften negative.
	if dominant == Positive {
		calibrated += 3
	} else if dominant == Negative {
		calibrated -= 2
	}

	return math.Max(50, math.Min(95, calibrated))
}
