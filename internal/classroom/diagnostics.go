package classroom

import (
	"context"
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/facematch"
)

// ExplainedCandidate is an enrolled student near a detected face.
type ExplainedCandidate struct {
	StudentID       int64   `json:"student_id"`
	Name            string  `json:"name"`
	Distance        float64 `json:"distance"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// FaceExplanation lists the nearest students of one detected face.
// FirstFit is the student the matcher picks for this face on its own, 0 for none.
type FaceExplanation struct {
	FaceIndex  int                  `json:"face_index"`
	FirstFit   int64                `json:"first_fit_student_id,omitempty"`
	Candidates []ExplainedCandidate `json:"candidates"`
}

// Explanation is the read-only diagnostic for one frame.
type Explanation struct {
	Tolerance float64           `json:"tolerance"`
	Faces     []FaceExplanation `json:"faces"`
}

// Explain reports, for every face in frame, the nearest enrolled students with
// exact distances. Nothing is written.
func (s *Service) Explain(ctx context.Context, classID int64, frame []byte, limit int) (*Explanation, error) {
	if limit <= 0 {
		limit = constants.DefaultExplainLimit
	}
	limit = min(limit, constants.MaxExplainLimit)

	if _, err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}
	members, err := s.loadRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	detections, err := s.encoder.ExtractEmbeddings(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}

	entries := rosterEntries(members)
	if err := facematch.CheckDimensions(detections, entries); err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.student.ID] = m.student.Name
	}

	out := &Explanation{Tolerance: s.matcher.Tolerance(), Faces: make([]FaceExplanation, 0, len(detections))}
	for i, det := range detections {
		ranked, err := s.rank(ctx, classID, det, entries, limit)
		if err != nil {
			return nil, err
		}
		fe := FaceExplanation{FaceIndex: i, Candidates: make([]ExplainedCandidate, 0, len(ranked))}
		for _, c := range ranked {
			fe.Candidates = append(fe.Candidates, ExplainedCandidate{
				StudentID:       c.ID,
				Name:            names[c.ID],
				Distance:        c.Distance,
				WithinTolerance: c.Match,
			})
		}
		single, err := s.matcher.Match([]facematch.Embedding{det}, entries)
		if err != nil {
			return nil, err
		}
		if ids := single.IDs(); len(ids) == 1 {
			fe.FirstFit = ids[0]
		}
		out.Faces = append(out.Faces, fe)
	}
	return out, nil
}

// rank uses the store's vector index when it has one.
func (s *Service) rank(ctx context.Context, classID int64, query facematch.Embedding, roster []facematch.RosterEntry, limit int) ([]facematch.Candidate, error) {
	finder, ok := s.store.(database.NearestStudentFinder)
	if !ok {
		return s.matcher.Rank(query, roster, limit)
	}
	nearest, err := finder.NearestStudents(ctx, classID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest students: %w", err)
	}
	out := make([]facematch.Candidate, len(nearest))
	for i, n := range nearest {
		out[i] = facematch.Candidate{ID: n.StudentID, Distance: n.Distance, Match: n.Distance <= s.matcher.Tolerance()}
	}
	return out, nil
}

// ConflictPair is a pair of enrolled students whose faces are within tolerance
// of each other, so first-fit order can decide which one a face resolves to.
type ConflictPair struct {
	facematch.Conflict
	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
}

// Conflicts lists look-alike pairs in the enrolled roster of a class.
// A nil tolerance uses the configured default.
func (s *Service) Conflicts(ctx context.Context, classID int64, tolerance *float64) ([]ConflictPair, error) {
	if _, err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}
	members, err := s.loadRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.matcherFor(tolerance).FindConflicts(rosterEntries(members))
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.student.ID] = m.student.Name
	}
	out := make([]ConflictPair, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictPair{Conflict: c, FirstName: names[c.First], SecondName: names[c.Second]}
	}
	return out, nil
}
