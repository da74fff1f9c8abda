// Package matching scores models against a booking request. Scoring is
// pure: the same request, candidate and options always give the same result.
package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"agency-sync-server/internal/domain"
)

const (
	WeightGender   = 25
	WeightHeight   = 25
	WeightCategory = 25
	WeightQuality  = 15
	WeightActivity = 10

	MaxScore             = 100
	RecommendedThreshold = 70

	HeightTolerance  = 5
	QualityThreshold = 7.0
	ActivityWindow   = 30 * 24 * time.Hour
)

// Criterion flags reported in Result.Criteria.
const (
	CriterionGender   = "gender"
	CriterionHeight   = "height"
	CriterionCategory = "category"
	CriterionQuality  = "quality"
	CriterionActivity = "recentActivity"
)

type Candidate struct {
	Model       domain.Model
	Evaluations []float64
}

// Options carries the inputs that would otherwise be hidden state.
type Options struct {
	// Now anchors the recent-activity window.
	Now time.Time
}

type Result struct {
	ModelID     string          `json:"modelId"`
	ModelName   string          `json:"modelName"`
	Score       int             `json:"score"`
	Reasons     []string        `json:"reasons"`
	Criteria    map[string]bool `json:"criteria"`
	Recommended bool            `json:"recommended"`
}

// Score rates one candidate. A requirement the request leaves unset is
// neither met nor scored.
func Score(req domain.BookingRequest, c Candidate, opts Options) Result {
	res := Result{
		ModelID:   c.Model.ID,
		ModelName: c.Model.Name,
		Reasons:   []string{},
		Criteria: map[string]bool{
			CriterionGender:   false,
			CriterionHeight:   false,
			CriterionCategory: false,
			CriterionQuality:  false,
			CriterionActivity: false,
		},
	}
	award := func(criterion string, weight int, reason string) {
		res.Criteria[criterion] = true
		res.Score += weight
		res.Reasons = append(res.Reasons, reason)
	}

	if req.Gender != "" && strings.EqualFold(string(req.Gender), string(c.Model.Gender)) {
		award(CriterionGender, WeightGender, "gender matches")
	}

	if req.TargetHeight > 0 && c.Model.Height > 0 && abs(c.Model.Height-req.TargetHeight) <= HeightTolerance {
		award(CriterionHeight, WeightHeight, fmt.Sprintf("height %dcm within %dcm of %dcm", c.Model.Height, HeightTolerance, req.TargetHeight))
	}

	if shared := intersect(req.Categories, c.Model.Categories); len(shared) > 0 {
		award(CriterionCategory, WeightCategory, "shares categories: "+strings.Join(shared, ", "))
	}

	if avg, ok := average(c.Evaluations); ok && avg >= QualityThreshold {
		award(CriterionQuality, WeightQuality, fmt.Sprintf("average evaluation %.1f", avg))
	}

	if recentlyActive(c.Model.LastActivity, opts.Now) {
		award(CriterionActivity, WeightActivity, "active in the last 30 days")
	}

	if res.Score > MaxScore {
		res.Score = MaxScore
	}
	res.Recommended = res.Score >= RecommendedThreshold
	return res
}

// Rank scores every candidate and orders them by score, highest first.
// Equal scores keep their input order.
func Rank(req domain.BookingRequest, candidates []Candidate, opts Options) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Score(req, c, opts)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// CandidatesFromDocument pairs every active model with its jury scores.
func CandidatesFromDocument(doc *domain.Document) []Candidate {
	if doc == nil {
		return nil
	}
	scores := make(map[string][]float64)
	for _, ev := range doc.JuryEvaluations {
		scores[ev.CandidateID] = append(scores[ev.CandidateID], ev.Score)
	}

	candidates := make([]Candidate, 0, len(doc.Models))
	for _, m := range doc.Models {
		if !m.IsActive {
			continue
		}
		candidates = append(candidates, Candidate{Model: m, Evaluations: scores[m.ID]})
	}
	return candidates
}

func intersect(want, have []string) []string {
	if len(want) == 0 || len(have) == 0 {
		return nil
	}
	owned := make(map[string]struct{}, len(have))
	for _, h := range have {
		owned[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	var shared []string
	for _, w := range want {
		key := strings.ToLower(strings.TrimSpace(w))
		if _, ok := owned[key]; ok && key != "" {
			shared = append(shared, w)
			delete(owned, key)
		}
	}
	return shared
}

func average(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func recentlyActive(lastActivity int64, now time.Time) bool {
	if lastActivity <= 0 || now.IsZero() {
		return false
	}
	since := now.Sub(time.UnixMilli(lastActivity))
	return since >= 0 && since <= ActivityWindow
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
