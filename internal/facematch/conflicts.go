package facematch

import (
	"cmp"
	"slices"

	"github.com/coder/hnsw"
)

// Graph parameters for the per-call conflict index.
const (
	conflictMaxNeighbors = 16
	conflictEfSearch     = 64
	conflictNeighbors    = 8
)

// Conflict is a pair of enrolled students whose embeddings are within tolerance
// of each other. First-fit matching can attribute one student's face to the
// other, depending on roster order.
type Conflict struct {
	First    int64   `json:"first_student_id"`
	Second   int64   `json:"second_student_id"`
	Distance float64 `json:"distance"`
}

// FindConflicts reports every pair of roster entries within the matcher's tolerance,
// closest pairs first. Candidates come from an HNSW graph and are confirmed with
// the exact distance; small rosters are compared exhaustively.
func (m Matcher) FindConflicts(roster []RosterEntry) ([]Conflict, error) {
	entries := make([]RosterEntry, 0, len(roster))
	for _, e := range roster {
		if len(e.Embedding) > 0 {
			entries = append(entries, e)
		}
	}
	if len(entries) < 2 {
		return nil, nil
	}
	want := len(entries[0].Embedding)
	byID := make(map[int64]Embedding, len(entries))
	for _, e := range entries {
		if len(e.Embedding) != want {
			return nil, &DimensionMismatchError{Want: want, Got: len(e.Embedding)}
		}
		byID[e.ID] = e.Embedding
	}

	var conflicts []Conflict
	seen := make(map[[2]int64]struct{})
	record := func(a, b int64) error {
		if a == b {
			return nil
		}
		if a > b {
			a, b = b, a
		}
		key := [2]int64{a, b}
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		d, err := Distance(byID[a], byID[b])
		if err != nil {
			return err
		}
		if d <= m.tolerance {
			conflicts = append(conflicts, Conflict{First: a, Second: b, Distance: d})
		}
		return nil
	}

	if len(entries) <= conflictNeighbors+1 {
		for i := range entries {
			for j := i + 1; j < len(entries); j++ {
				if err := record(entries[i].ID, entries[j].ID); err != nil {
					return nil, err
				}
			}
		}
	} else {
		g := hnsw.NewGraph[int64]()
		g.M = conflictMaxNeighbors
		g.Ml = 1.0 / float64(conflictMaxNeighbors)
		g.EfSearch = conflictEfSearch
		g.Distance = hnsw.EuclideanDistance
		for _, e := range entries {
			g.Add(hnsw.MakeNode(e.ID, e.Embedding.Float32()))
		}
		for _, e := range entries {
			for _, n := range g.Search(e.Embedding.Float32(), conflictNeighbors+1) {
				if err := record(e.ID, n.Key); err != nil {
					return nil, err
				}
			}
		}
	}

	slices.SortFunc(conflicts, func(a, b Conflict) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		if c := cmp.Compare(a.First, b.First); c != 0 {
			return c
		}
		return cmp.Compare(a.Second, b.Second)
	})
	return conflicts, nil
}
