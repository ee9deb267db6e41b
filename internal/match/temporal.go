// Package match pairs survey responses with conversations: a temporal
// matcher for proximity-based candidates and an arbitrator that merges
// candidate streams into a single conflict-free mapping.
package match

import (
	"sort"
	"time"
)

// Event is a pending entity on one side of a temporal match: a survey start
// or a conversation creation.
type Event struct {
	Key  string
	Time time.Time
}

// Pair is one accepted temporal pairing with its absolute time delta.
type Pair struct {
	SurveyID       string
	ConversationID string
	Delta          time.Duration
}

// ClaimSet tracks keys consumed by earlier passes. Sets are never mutated in
// place; With returns a fresh copy so passes stay idempotent and testable in
// isolation.
type ClaimSet map[string]struct{}

// NewClaimSet builds a set from the given keys.
func NewClaimSet(keys ...string) ClaimSet {
	s := make(ClaimSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s ClaimSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// With returns a copy of the set extended with keys.
func (s ClaimSet) With(keys ...string) ClaimSet {
	out := make(ClaimSet, len(s)+len(keys))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// TemporalResult holds one pass's accepted pairs, the residual unmatched
// events on both sides, and the claim sets extended with this pass's matches.
type TemporalResult struct {
	Pairs            []Pair
	UnmatchedSurveys []Event
	UnmatchedConvs   []Event
	ClaimedSurveys   ClaimSet
	ClaimedConvs     ClaimSet
}

// MatchByTime pairs surveys to conversations by nearest elapsed time within
// the tolerance window, one-to-one on both sides.
//
// All pairwise deltas within the window are enumerated, sorted ascending, and
// accepted greedily; ties at equal delta go to the lexicographically smaller
// conversation id, then survey id, so repeated runs over identical input are
// byte-identical regardless of input ordering. Greedy-by-smallest-delta takes
// the highest-confidence pairs first; false near-ties are rare at this scale,
// so a min-cost assignment buys nothing.
func MatchByTime(surveys, convs []Event, window time.Duration, claimedSurveys, claimedConvs ClaimSet) TemporalResult {
	pendingS := unclaimed(surveys, claimedSurveys)
	pendingC := unclaimed(convs, claimedConvs)

	var candidates []Pair
	for _, s := range pendingS {
		for _, c := range pendingC {
			d := s.Time.Sub(c.Time)
			if d < 0 {
				d = -d
			}
			if d <= window {
				candidates = append(candidates, Pair{SurveyID: s.Key, ConversationID: c.Key, Delta: d})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Delta != candidates[j].Delta {
			return candidates[i].Delta < candidates[j].Delta
		}
		if candidates[i].ConversationID != candidates[j].ConversationID {
			return candidates[i].ConversationID < candidates[j].ConversationID
		}
		return candidates[i].SurveyID < candidates[j].SurveyID
	})

	takenS := make(map[string]struct{})
	takenC := make(map[string]struct{})
	var pairs []Pair
	for _, cand := range candidates {
		if _, ok := takenS[cand.SurveyID]; ok {
			continue
		}
		if _, ok := takenC[cand.ConversationID]; ok {
			continue
		}
		takenS[cand.SurveyID] = struct{}{}
		takenC[cand.ConversationID] = struct{}{}
		pairs = append(pairs, cand)
	}

	res := TemporalResult{
		Pairs:          pairs,
		ClaimedSurveys: claimedSurveys.With(keysOf(takenS)...),
		ClaimedConvs:   claimedConvs.With(keysOf(takenC)...),
	}
	for _, s := range pendingS {
		if _, ok := takenS[s.Key]; !ok {
			res.UnmatchedSurveys = append(res.UnmatchedSurveys, s)
		}
	}
	for _, c := range pendingC {
		if _, ok := takenC[c.Key]; !ok {
			res.UnmatchedConvs = append(res.UnmatchedConvs, c)
		}
	}
	return res
}

func unclaimed(events []Event, claimed ClaimSet) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !claimed.Has(e.Key) {
			out = append(out, e)
		}
	}
	return out
}

func keysOf(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
