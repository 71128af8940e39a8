package facematch

import (
	"errors"
	"slices"
	"testing"
)

func TestMatchScenarioSingleStudent(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{
		{ID: 1, Embedding: Embedding{0, 0, 0}},
		{ID: 2, Embedding: Embedding{2, 2, 2}},
		{ID: 3}, // no face data
	}
	// 0.4 away from student 1.
	detections := []Embedding{{0.4, 0, 0}}

	result, err := m.Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.IDs(); !slices.Equal(got, []int64{1}) {
		t.Errorf("Match = %v, want [1]", got)
	}
}

func TestMatchDeduplicatesIdentity(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{
		{ID: 7, Embedding: Embedding{1, 1}},
		{ID: 8, Embedding: Embedding{-5, -5}},
	}
	detections := []Embedding{{1.1, 1}, {0.9, 1.05}, {1, 1}}

	result, err := m.Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.IDs(); !slices.Equal(got, []int64{7}) {
		t.Errorf("Match = %v, want [7]", got)
	}
	if result.Len() != 1 {
		t.Errorf("Len() = %d, want 1", result.Len())
	}
}

func TestMatchFirstFitNotBestFit(t *testing.T) {
	m := NewMatcher(0.6)
	// Detection is 0.5 from student 1 and 0.1 from student 2.
	roster := []RosterEntry{
		{ID: 1, Embedding: Embedding{0, 0}},
		{ID: 2, Embedding: Embedding{0.4, 0}},
	}
	detections := []Embedding{{0.5, 0}}

	result, err := m.Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Has(1) || result.Has(2) {
		t.Errorf("Match = %v, want [1] (first entry within tolerance)", result.IDs())
	}

	// Reversing roster order reverses the outcome.
	slices.Reverse(roster)
	result, err = m.Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Has(2) || result.Has(1) {
		t.Errorf("Match with reversed roster = %v, want [2]", result.IDs())
	}
}

func TestMatchKeepsDetectionOrder(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{
		{ID: 1, Embedding: Embedding{0, 0}},
		{ID: 2, Embedding: Embedding{10, 10}},
		{ID: 3, Embedding: Embedding{-10, 10}},
	}
	detections := []Embedding{{-10, 10.1}, {50, 50}, {0.1, 0}, {10, 9.9}}

	result, err := m.Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.IDs(); !slices.Equal(got, []int64{3, 1, 2}) {
		t.Errorf("Match = %v, want [3 1 2]", got)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{{ID: 1, Embedding: Embedding{0, 0}}}
	detections := []Embedding{{0, 0}}

	tests := []struct {
		name       string
		detections []Embedding
		roster     []RosterEntry
	}{
		{"no detections", nil, roster},
		{"empty detections", []Embedding{}, roster},
		{"no roster", detections, nil},
		{"both empty", nil, nil},
		{"only students without face data", detections, []RosterEntry{{ID: 4}, {ID: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Match(tt.detections, tt.roster)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Len() != 0 {
				t.Errorf("Match = %v, want empty", result.IDs())
			}
		})
	}
}

func TestMatchUnmatchedDetectionsContributeNothing(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{{ID: 1, Embedding: Embedding{0, 0}}}
	result, err := m.Match([]Embedding{{5, 5}, {-5, 5}}, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("Match = %v, want empty", result.IDs())
	}
}

func TestMatchDimensionMismatchFailsWholeFrame(t *testing.T) {
	m := NewMatcher(0.6)

	tests := []struct {
		name       string
		detections []Embedding
		roster     []RosterEntry
	}{
		{
			name:       "roster entry differs",
			detections: []Embedding{{0, 0}},
			roster:     []RosterEntry{{ID: 1, Embedding: Embedding{0, 0}}, {ID: 2, Embedding: Embedding{0, 0, 0}}},
		},
		{
			name:       "detections differ",
			detections: []Embedding{{0, 0}, {0, 0, 0}},
			roster:     []RosterEntry{{ID: 1, Embedding: Embedding{0, 0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Match(tt.detections, tt.roster)
			var mismatch *DimensionMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("Match error = %v, want DimensionMismatchError", err)
			}
			if result.Len() != 0 {
				t.Errorf("Match returned partial result %v", result.IDs())
			}
		})
	}
}

func TestMatchToleranceOverride(t *testing.T) {
	roster := []RosterEntry{{ID: 1, Embedding: Embedding{0, 0}}}
	detections := []Embedding{{0.5, 0}}

	strict, err := NewMatcher(0.6).WithTolerance(0.3).Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strict.Len() != 0 {
		t.Errorf("strict Match = %v, want empty", strict.IDs())
	}

	loose, err := NewMatcher(0.6).Match(detections, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loose.Has(1) {
		t.Errorf("default Match = %v, want [1]", loose.IDs())
	}
}

func TestNewMatchResult(t *testing.T) {
	r := NewMatchResult(3, 1, 3, 2, 1)
	if got := r.IDs(); !slices.Equal(got, []int64{3, 1, 2}) {
		t.Errorf("IDs() = %v, want [3 1 2]", got)
	}
	if r.Has(4) {
		t.Error("Has(4) = true, want false")
	}

	var zero MatchResult
	if zero.Has(1) || zero.Len() != 0 {
		t.Error("zero MatchResult should be empty")
	}
}

func TestRank(t *testing.T) {
	m := NewMatcher(0.6)
	roster := []RosterEntry{
		{ID: 1, Embedding: Embedding{0.5, 0}},
		{ID: 2, Embedding: Embedding{0.1, 0}},
		{ID: 3},
		{ID: 4, Embedding: Embedding{3, 0}},
	}

	got, err := m.Rank(Embedding{0, 0}, roster, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Rank returned %d candidates, want 2", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("Rank order = [%d %d], want [2 1]", got[0].ID, got[1].ID)
	}
	if !got[0].Match || !got[1].Match {
		t.Errorf("both candidates should be within tolerance: %+v", got)
	}

	all, err := m.Rank(Embedding{0, 0}, roster, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[2].ID != 4 || all[2].Match {
		t.Errorf("Rank(limit=0) = %+v, want 3 candidates ending with 4 outside tolerance", all)
	}
}
