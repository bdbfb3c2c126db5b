package emotion

import (
	"math"
	"testing"
)

func TestClassifyFallback(t *testing.T) {
	for _, scores := range []map[string]float64{nil, {}} {
		out := Classify(scores)
		if out.Category != Neutral {
			t.Errorf("category = %s; want neutral", out.Category)
		}
		if out.Confidence != 60.0 {
			t.Errorf("confidence = %f; want 60", out.Confidence)
		}
		if out.Emoji != "😐" || out.Label != "Netral" {
			t.Errorf("fallback presentation = %s %s; want 😐 Netral", out.Emoji, out.Label)
		}
	}
}

func TestClassifyModeratelyHappy(t *testing.T) {
	// A visibly happy face with mixed background signal. Both the strong
	// positive rule and the happy+surprise rule fire; the result must land as
	// a confident but not absurd positive.
	out := Classify(map[string]float64{
		"happy": 40, "surprise": 5, "neutral": 30,
		"sad": 10, "angry": 5, "fear": 5, "disgust": 5,
	})

	if out.Category != Positive {
		t.Fatalf("category = %s; want positive", out.Category)
	}
	if out.Confidence < 60 || out.Confidence > 90 {
		t.Errorf("confidence = %f; want within [60, 90]", out.Confidence)
	}
	if math.Abs(out.Confidence-75) > 1e-9 {
		t.Errorf("confidence = %f; want 75 (happy+surprise rule: 55 + (45-25))", out.Confidence)
	}
	if out.Label != "Baik" || out.Emoji != "😊" {
		t.Errorf("presentation = %s %s; want 😊 Baik", out.Emoji, out.Label)
	}
}

func TestClassifyClearlyNeutral(t *testing.T) {
	out := Classify(map[string]float64{
		"neutral": 80, "happy": 5, "surprise": 5, "sad": 5, "angry": 5,
	})

	if out.Category != Neutral {
		t.Fatalf("category = %s; want neutral", out.Category)
	}
	if out.Confidence < 80 {
		t.Errorf("confidence = %f; want high confidence for a clear margin", out.Confidence)
	}
}

func TestClassifyNegative(t *testing.T) {
	out := Classify(map[string]float64{
		"sad": 50, "angry": 20, "neutral": 20, "happy": 5, "surprise": 5,
	})

	if out.Category != Negative {
		t.Fatalf("category = %s; want negative", out.Category)
	}
	if out.Label != "Kurang Baik" || out.Emoji != "😔" {
		t.Errorf("presentation = %s %s; want 😔 Kurang Baik", out.Emoji, out.Label)
	}
	if out.Confidence < 50 || out.Confidence > 95 {
		t.Errorf("confidence = %f; want within [50, 95]", out.Confidence)
	}
}

func TestClassifyNeutralWithPositiveCloseBehind(t *testing.T) {
	// Neutral wins the remap but positive is within 70% of it and above 25:
	// the tie-break rule flips to a gentle positive at fixed confidence 70.
	out := Classify(map[string]float64{
		"neutral": 40, "happy": 22, "sad": 28, "angry": 10,
	})

	if out.Category != Positive {
		t.Fatalf("category = %s; want positive via near-tie rule", out.Category)
	}
	if out.Confidence != 70 {
		t.Errorf("confidence = %f; want 70", out.Confidence)
	}
}

func TestClassifyPositiveNeutralTieReadsPositive(t *testing.T) {
	// The raw neutral score is set to exactly the boosted happy share, so the
	// remapped positive and neutral totals are bit-identical. The tie resolves
	// in positive, neutral, negative order.
	scores := map[string]float64{"happy": 10, "sad": 12}
	scores["neutral"] = scores["happy"] * 1.3

	out := Classify(scores)
	if out.Category != Positive {
		t.Fatalf("category = %s; want positive on an exact tie", out.Category)
	}
	// Zero margin calibrates to the floor; the near-tie override for a
	// neutral dominant must not fire here.
	if out.Confidence != 50 {
		t.Errorf("confidence = %f; want 50", out.Confidence)
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	cases := []map[string]float64{
		{"happy": 100},
		{"sad": 100},
		{"neutral": 100},
		{"happy": 15, "surprise": 14, "neutral": 15, "sad": 14, "angry": 14, "fear": 14, "disgust": 14},
		{"happy": 1, "sad": 1},
	}

	for i, scores := range cases {
		out := Classify(scores)
		if out.Confidence < 50 || out.Confidence > 95 {
			t.Errorf("case %d: confidence = %f; want within [50, 95]", i, out.Confidence)
		}
	}
}

func TestRemapWeightsAndNormalization(t *testing.T) {
	// happy is boosted 1.3x, surprise splits 80/20 between positive and
	// neutral, and the result is normalized back to a 100 total.
	cat := remap(map[string]float64{"happy": 50, "surprise": 50})

	total := cat[Positive] + cat[Neutral] + cat[Negative]
	if math.Abs(total-100) > 1e-9 {
		t.Fatalf("normalized total = %f; want 100", total)
	}

	// positive = 50*1.3 + 50*0.8 = 105, neutral = 50*0.2 = 10, of 115.
	wantPositive := 105.0 / 115.0 * 100
	if math.Abs(cat[Positive]-wantPositive) > 1e-9 {
		t.Errorf("positive share = %f; want %f", cat[Positive], wantPositive)
	}
	if cat[Negative] != 0 {
		t.Errorf("negative share = %f; want 0", cat[Negative])
	}
}

func TestCalibrateMarginTiers(t *testing.T) {
	tests := []struct {
		name     string
		cat      map[Category]float64
		expected float64
	}{
		// margin 50: min(92, 70 + 10*0.5) = 75, raw 60 is not > 60, no nudge
		{"wide margin", map[Category]float64{Neutral: 60, Positive: 10, Negative: 5}, 75},
		// margin 30: min(85, 60 + 5*0.6) = 63, raw 50 no nudge
		{"medium margin", map[Category]float64{Neutral: 50, Positive: 20, Negative: 10}, 63},
		// margin 20: min(75, 55 + 5*0.8) = 59, raw 50 no nudge
		{"narrow margin", map[Category]float64{Neutral: 50, Positive: 30, Negative: 10}, 59},
		// margin 10: min(65, 50+10) = 60, raw 45 no nudge
		{"tight margin", map[Category]float64{Neutral: 45, Positive: 35, Negative: 10}, 60},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := calibrate(Neutral, tc.cat[Neutral], tc.cat)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("calibrate = %f; want %f", got, tc.expected)
			}
		})
	}
}

func TestCalibrateNudges(t *testing.T) {
	// Same margin (50), different absolute scores and categories.
	base := calibrate(Neutral, 60, map[Category]float64{Neutral: 60, Positive: 10})

	high := calibrate(Neutral, 61, map[Category]float64{Neutral: 61, Positive: 11})
	if high != base+5 {
		t.Errorf("raw > 60 nudge: got %f; want %f", high, base+5)
	}

	positive := calibrate(Positive, 60, map[Category]float64{Positive: 60, Neutral: 10})
	if positive != base+3 {
		t.Errorf("positive bias: got %f; want %f", positive, base+3)
	}

	negative := calibrate(Negative, 60, map[Category]float64{Negative: 60, Neutral: 10})
	if negative != base-2 {
		t.Errorf("negative bias: got %f; want %f", negative, base-2)
	}
}
