// Package classroom implements class management, enrollment and attendance
// marking on top of the storage backends and the face encoder.
package classroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/facematch"
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// QualityError is returned when an enrollment photo fails the quality check.
type QualityError struct {
	Quality detector.Quality
}

func (e *QualityError) Error() string {
	return e.Quality.Message()
}

// FaceEncoder turns images into face embeddings. Implemented by *detector.Detector.
type FaceEncoder interface {
	ExtractEmbeddings(ctx context.Context, frame []byte) ([]facematch.Embedding, error)
	EnrollmentEmbedding(ctx context.Context, img []byte) (facematch.Embedding, detector.Quality, error)
	QualityCheck(ctx context.Context, img []byte) (detector.Quality, error)
}

// Options configure a Service.
type Options struct {
	Tolerance float64          // default match tolerance
	Location  *time.Location   // decides the attendance day, UTC when nil
	Now       func() time.Time // clock, time.Now when nil
}

// Service coordinates the store, the encoder and the matcher.
type Service struct {
	store      database.Store
	encoder    FaceEncoder
	matcher    facematch.Matcher
	reconciler *attendance.Reconciler
	loc        *time.Location
	now        func() time.Time
}

// New creates a Service.
func New(store database.Store, encoder FaceEncoder, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		encoder:    encoder,
		matcher:    facematch.NewMatcher(opts.Tolerance),
		reconciler: attendance.NewReconciler(store).WithClock(opts.Now),
		loc:        opts.Location,
		now:        opts.Now,
	}
}

// Tolerance returns the default match tolerance.
func (s *Service) Tolerance() float64 {
	return s.matcher.Tolerance()
}

// Today returns the attendance day in the configured zone.
func (s *Service) Today() attendance.Day {
	return attendance.DayOf(s.now().In(s.loc))
}

func (s *Service) matcherFor(tolerance *float64) facematch.Matcher {
	if tolerance == nil {
		return s.matcher
	}
	return s.matcher.WithTolerance(*tolerance)
}

// requireClass returns the class or database.ErrNotFound.
func (s *Service) requireClass(ctx context.Context, id int64) (*database.StoredClass, error) {
	class, err := s.store.GetClass(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return nil, fmt.Errorf("class %d: %w", id, database.ErrNotFound)
	}
	return class, nil
}

// rosterMember is an enrolled student with the decoded embedding.
type rosterMember struct {
	student   database.StoredStudent
	embedding facematch.Embedding
}

// loadRoster returns the enrolled students of a class ordered by ID.
// A malformed stored embedding fails the whole load.
func (s *Service) loadRoster(ctx context.Context, classID int64) ([]rosterMember, error) {
	students, err := s.store.ListEnrolledStudents(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	members := make([]rosterMember, 0, len(students))
	for _, st := range students {
		emb, err := facematch.Decode(st.FaceEmbedding)
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", st.ID, err)
		}
		members = append(members, rosterMember{student: st, embedding: emb})
	}
	return members, nil
}

func rosterEntries(members []rosterMember) []facematch.RosterEntry {
	entries := make([]facematch.RosterEntry, len(members))
	for i, m := range members {
		entries[i] = facematch.RosterEntry{ID: m.student.ID, Embedding: m.embedding}
	}
	return entries
}
