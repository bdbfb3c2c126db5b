package match

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/models"
)

// Candidate is the best gallery identity for a probe, matched or not.
type Candidate struct {
	UserID     uuid.UUID
	Nama       string
	NIM        string
	Distance   float64 // aggregate distance of the best identity
	Confidence float64 // 0-100, reported even on rejection for diagnostics
}

// Result is the outcome of matching one probe against the gallery.
type Result struct {
	Matched   bool
	Candidate *Candidate // nil only when the gallery is empty
}

// Matcher scores a probe descriptor against the enrolled gallery.
//
// Per identity, the distances from the probe to each stored descriptor are
// reduced to a single aggregate: 0.5*min + 0.3*mean + 0.2*median. Min rewards
// the single best enrollment sample, mean captures consistency, and median
// resists outliers; a pure min or mean score is less robust when a user's
// enrollment set contains a few poor photos.
type Matcher struct {
	tolerance   float64
	strongMatch float64
}

// NewMatcher builds a matcher. tolerance is the maximum accepted aggregate
// distance (inclusive); strongMatch is the inner threshold below which the
// confidence gets a +10 bonus, capped at 99.
func NewMatcher(tolerance, strongMatch float64) *Matcher {
	return &Matcher{tolerance: tolerance, strongMatch: strongMatch}
}

// Match compares probe against every gallery entry. Identities are visited in
// gallery order, and at equal aggregate distance the earlier identity wins,
// so the result is stable for a fixed gallery and probe.
func (m *Matcher) Match(gallery []models.GalleryEntry, probe []float32) Result {
	type identityScore struct {
		entry     models.GalleryEntry
		distances []float64
	}

	scores := make(map[uuid.UUID]*identityScore)
	order := make([]uuid.UUID, 0, len(gallery))

	for _, e := range gallery {
		s, ok := scores[e.UserID]
		if !ok {
			s = &identityScore{entry: e}
			scores[e.UserID] = s
			order = append(order, e.UserID)
		}
		s.distances = append(s.distances, EuclideanDistance(probe, e.Vector))
	}

	if len(order) == 0 {
		return Result{}
	}

	var best *identityScore
	bestDistance := math.Inf(1)
	for _, id := range order {
		s := scores[id]
		d := AggregateDistance(s.distances)
		if d < bestDistance {
			bestDistance = d
			best = s
		}
	}

	confidence := math.Max(0, (1-bestDistance)*100)
	matched := bestDistance <= m.tolerance
	if matched && bestDistance < m.strongMatch {
		confidence = math.Min(99, confidence+10)
	}

	return Result{
		Matched: matched,
		Candidate: &Candidate{
			UserID:     best.entry.UserID,
			Nama:       best.entry.Nama,
			NIM:        best.entry.NIM,
			Distance:   bestDistance,
			Confidence: confidence,
		},
	}
}

// AggregateDistance blends a distance list into one scalar:
// 0.5*min + 0.3*mean + 0.2*median.
func AggregateDistance(distances []float64) float64 {
	if len(distances) == 0 {
		return math.Inf(1)
	}

	minD := distances[0]
	var sum float64
	for _, d := range distances {
		if d < minD {
			minD = d
		}
		sum += d
	}
	mean := sum / float64(len(distances))

	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return minD*0.5 + mean*0.3 + median*0.2
}

// EuclideanDistance between two descriptors. Mismatched dimensions score as
// infinitely far apart rather than panicking on corrupt gallery data.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
