package facematch

import (
	"cmp"
	"slices"
)

// RosterEntry is an enrolled student eligible for matching.
type RosterEntry struct {
	ID        int64
	Embedding Embedding
}

// MatchResult is the set of student IDs recognised in a frame, in the order
// they were first matched.
type MatchResult struct {
	ids  []int64
	seen map[int64]struct{}
}

// NewMatchResult builds a result from ids, dropping duplicates.
func NewMatchResult(ids ...int64) MatchResult {
	var r MatchResult
	for _, id := range ids {
		r.add(id)
	}
	return r
}

func (r *MatchResult) add(id int64) {
	if r.seen == nil {
		r.seen = make(map[int64]struct{})
	}
	if _, ok := r.seen[id]; ok {
		return
	}
	r.seen[id] = struct{}{}
	r.ids = append(r.ids, id)
}

// Has reports whether id was matched.
func (r MatchResult) Has(id int64) bool {
	_, ok := r.seen[id]
	return ok
}

// IDs returns the matched IDs in match order.
func (r MatchResult) IDs() []int64 {
	return slices.Clone(r.ids)
}

// Len returns the number of matched students.
func (r MatchResult) Len() int {
	return len(r.ids)
}

// Match resolves detected faces to roster entries.
//
// Detections are processed in detector order. For each one the roster is
// scanned in order and the first entry within tolerance is taken, even when a
// later entry is closer. A student matched by an earlier detection can still
// absorb later detections, which then add nothing. Entries without an
// embedding are skipped.
//
// All embeddings must share one dimension; otherwise the whole frame fails
// with a DimensionMismatchError and no partial result is returned.
func (m Matcher) Match(detections []Embedding, roster []RosterEntry) (MatchResult, error) {
	var result MatchResult
	if len(detections) == 0 || len(roster) == 0 {
		return result, nil
	}
	if err := CheckDimensions(detections, roster); err != nil {
		return MatchResult{}, err
	}

	for _, det := range detections {
		for _, entry := range roster {
			if len(entry.Embedding) == 0 {
				continue
			}
			ok, err := m.IsMatch(entry.Embedding, det)
			if err != nil {
				return MatchResult{}, err
			}
			if ok {
				result.add(entry.ID)
				break
			}
		}
	}
	return result, nil
}

// CheckDimensions verifies every non-empty embedding has the dimension of the first detection.
func CheckDimensions(detections []Embedding, roster []RosterEntry) error {
	if len(detections) == 0 {
		return nil
	}
	want := len(detections[0])
	for _, d := range detections[1:] {
		if len(d) != want {
			return &DimensionMismatchError{Want: want, Got: len(d)}
		}
	}
	for _, entry := range roster {
		if len(entry.Embedding) != 0 && len(entry.Embedding) != want {
			return &DimensionMismatchError{Want: want, Got: len(entry.Embedding)}
		}
	}
	return nil
}

// Candidate is a roster entry with its distance to a query embedding.
type Candidate struct {
	ID       int64   `json:"student_id"`
	Distance float64 `json:"distance"`
	Match    bool    `json:"within_tolerance"`
}

// Rank returns up to limit roster entries closest to query, nearest first.
// Ties keep roster order. It does not affect Match, which stays first-fit.
func (m Matcher) Rank(query Embedding, roster []RosterEntry, limit int) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(roster))
	for _, entry := range roster {
		if len(entry.Embedding) == 0 {
			continue
		}
		d, err := Distance(query, entry.Embedding)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{ID: entry.ID, Distance: d, Match: d <= m.tolerance})
	}
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
