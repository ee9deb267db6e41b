package match

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// Candidate is one nominated (survey, conversation) pairing tagged with the
// method that produced it. The arbitrator merges candidate streams by tag.
type Candidate struct {
	Method         model.MatchMethod
	SurveyID       string
	ConversationID string
	Delta          time.Duration
	// UserID is the participant identifier travelling with the match:
	// extracted for explicit candidates, derived for temporal ones.
	UserID string
}

// Arbitrate merges candidates into a conflict-free MatchResult set.
//
// Methods apply in priority order ExplicitID > RecoveredData > Timestamp;
// a key consumed by a higher-priority method is never reconsidered. Within a
// method, candidates order by ascending delta with the temporal tie-break.
// If two methods nominate the same pair, the higher-priority metadata wins;
// if they nominate conflicting pairs sharing one key, the higher-priority
// pair wins and the loser returns to the unmatched pool.
//
// A double-claim surviving arbitration is a defect in this logic, not an
// input problem, and comes back as an error so the run aborts instead of
// silently breaking the one-to-one guarantee.
func Arbitrate(candidates []Candidate, window time.Duration) ([]model.MatchResult, error) {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Method.Priority() != b.Method.Priority() {
			return a.Method.Priority() > b.Method.Priority()
		}
		if a.Delta != b.Delta {
			return a.Delta < b.Delta
		}
		if a.ConversationID != b.ConversationID {
			return a.ConversationID < b.ConversationID
		}
		return a.SurveyID < b.SurveyID
	})

	takenSurvey := make(map[string]struct{})
	takenConv := make(map[string]struct{})
	var results []model.MatchResult

	for _, c := range ordered {
		if _, ok := takenSurvey[c.SurveyID]; ok {
			continue
		}
		if _, ok := takenConv[c.ConversationID]; ok {
			continue
		}
		takenSurvey[c.SurveyID] = struct{}{}
		takenConv[c.ConversationID] = struct{}{}

		// Delta orders explicit candidates above, but it played no role in
		// establishing the match itself; don't report it.
		delta := c.Delta.Seconds()
		if c.Method == model.MatchExplicitID {
			delta = 0
		}

		results = append(results, model.MatchResult{
			SurveyID:         c.SurveyID,
			ConversationID:   c.ConversationID,
			Method:           c.Method,
			Confidence:       Confidence(c.Method, c.Delta, window),
			TimeDeltaSeconds: delta,
			UserID:           c.UserID,
		})
	}

	if err := verifyOneToOne(results); err != nil {
		return nil, err
	}
	return results, nil
}

// verifyOneToOne asserts the output invariant every downstream consumer
// relies on. A violation here means the resolution logic above regressed.
func verifyOneToOne(results []model.MatchResult) error {
	surveys := make(map[string]struct{}, len(results))
	convs := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, dup := surveys[r.SurveyID]; dup {
			return eris.Errorf("arbiter: survey %s claimed twice", r.SurveyID)
		}
		if _, dup := convs[r.ConversationID]; dup {
			return eris.Errorf("arbiter: conversation %s claimed twice", r.ConversationID)
		}
		surveys[r.SurveyID] = struct{}{}
		convs[r.ConversationID] = struct{}{}
	}
	return nil
}

// Confidence scores a match in [0,1]. Explicit identifier matches are exact.
// Temporal scores decrease linearly as the delta approaches the window;
// recovered conversations start near 1.0 and keep an elevated floor because
// their content was independently verified during recovery.
func Confidence(method model.MatchMethod, delta, window time.Duration) float64 {
	if method == model.MatchExplicitID {
		return 1.0
	}
	frac := 0.0
	if window > 0 {
		frac = float64(delta) / float64(window)
	}
	if frac > 1 {
		frac = 1
	}

	var conf float64
	switch method {
	case model.MatchRecoveredData:
		conf = 0.98 - 0.18*frac
	default:
		conf = 0.95 - 0.75*frac
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
