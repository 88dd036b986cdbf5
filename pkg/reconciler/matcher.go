package reconciler

import (
	"sort"
	"time"

	"github.com/careops/visitsync/pkg/records"
)

// MatchResult is the output of one matching round. Unmatched records on
// both sides are reported, never discarded.
type MatchResult struct {
	Pairs              []records.MatchedPair
	UnmatchedOpenPhone []records.UnmatchedRecord
	UnmatchedAxisCare  []records.UnmatchedRecord
}

// Matcher pairs OpenPhone calls with the AxisCare visit windows they fell
// within. Matching is deterministic: the same inputs always produce the
// same pairs regardless of input order.
type Matcher struct {
	rules Rules
}

// NewMatcher returns a matcher using the given tolerances.
func NewMatcher(rules Rules) *Matcher {
	return &Matcher{rules: rules}
}

// Match greedily pairs each call with the visit window it best overlaps.
// Calls are processed in start order; each window is claimed at most once.
// Ties on overlap go to the smaller start delta, then the smallest
// visit external ID.
func (m *Matcher) Match(openphone, axiscare []records.SourceRecord) MatchResult {
	calls := make([]records.SourceRecord, len(openphone))
	copy(calls, openphone)
	sortRecords(calls)

	visits := make([]records.SourceRecord, len(axiscare))
	copy(visits, axiscare)
	sortRecords(visits)

	visitsBySubject := make(map[string][]int)
	for i, v := range visits {
		key := joinKey(v)
		visitsBySubject[key] = append(visitsBySubject[key], i)
	}

	var result MatchResult
	claimed := make(map[int]bool)

	for _, call := range calls {
		best := -1
		var bestOverlap time.Duration
		var bestDelta time.Duration

		for _, i := range visitsBySubject[joinKey(call)] {
			if claimed[i] {
				continue
			}
			visit := visits[i]
			if !m.withinTolerance(call, visit) {
				continue
			}
			ov := overlap(call, visit)
			delta := absDuration(call.Start.Sub(visit.Start))
			switch {
			case best == -1 || ov > bestOverlap:
				best, bestOverlap, bestDelta = i, ov, delta
			case ov == bestOverlap && delta < bestDelta:
				best, bestOverlap, bestDelta = i, ov, delta
			case ov == bestOverlap && delta == bestDelta && visit.ExternalID < visits[best].ExternalID:
				// Full tie: the smallest visit ID wins.
				best = i
			}
		}

		if best == -1 {
			result.UnmatchedOpenPhone = append(result.UnmatchedOpenPhone, records.UnmatchedRecord{
				Record: call,
				Reason: "no corresponding visit",
			})
			continue
		}

		claimed[best] = true
		result.Pairs = append(result.Pairs, records.MatchedPair{
			OpenPhone:  call,
			AxisCare:   visits[best],
			Confidence: confidence(call, visits[best]),
		})
	}

	for i, v := range visits {
		if !claimed[i] {
			result.UnmatchedAxisCare = append(result.UnmatchedAxisCare, records.UnmatchedRecord{
				Record: v,
				Reason: "no call during visit window",
			})
		}
	}

	return result
}

// withinTolerance reports whether the call window touches the visit window
// after widening the visit by the configured tolerance on each side.
func (m *Matcher) withinTolerance(call, visit records.SourceRecord) bool {
	start := visit.Start.Add(-m.rules.WindowTolerance)
	end := visit.End.Add(m.rules.WindowTolerance)
	return call.Start.Before(end) && call.End.After(start)
}

// overlap returns the raw intersection of the two windows, zero when
// disjoint.
func overlap(a, b records.SourceRecord) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// confidence is the fraction of the call window covered by the visit
// window, clamped to [0, 1].
func confidence(call, visit records.SourceRecord) float64 {
	dur := call.Duration()
	if dur <= 0 {
		return 0
	}
	c := float64(overlap(call, visit)) / float64(dur)
	if c > 1 {
		c = 1
	}
	return c
}

// joinKey is the cross-system pairing key. Calls identify caregivers by
// phone; visits carry both a caregiver ID and, usually, the phone. Prefer
// the phone so the two namespaces meet.
func joinKey(r records.SourceRecord) string {
	if p := r.Field(records.FieldPhone); p != "" {
		return p
	}
	return r.SubjectID
}

func sortRecords(recs []records.SourceRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Start.Equal(recs[j].Start) {
			return recs[i].Start.Before(recs[j].Start)
		}
		return recs[i].ExternalID < recs[j].ExternalID
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
