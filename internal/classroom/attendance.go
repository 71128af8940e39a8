package classroom

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// StudentRef identifies a student in results.
type StudentRef struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	RollNumber *string `json:"roll_number"`
	Photo      []byte  `json:"photo"` // base64 JPEG in JSON, null when none is kept
}

// MarkResult is the outcome of marking attendance from one frame.
type MarkResult struct {
	Date          attendance.Day `json:"date"`
	Tolerance     float64        `json:"tolerance"`
	FacesDetected int            `json:"faces_detected"`
	TotalStudents int            `json:"total_students"`
	PresentCount  int            `json:"present_count"`
	AbsentCount   int            `json:"absent_count"`
	Present       []StudentRef   `json:"present_students"`
	Absent        []StudentRef   `json:"absent_students"`
}

// MarkFromFrame detects faces in frame, matches them against the enrolled
// students of the class and records today's attendance for every one of them.
// A nil tolerance uses the configured default.
//
// The frame is rejected as a whole when any embedding has the wrong dimension
// or a stored embedding is malformed; nothing is written in that case.
// A class without enrolled students yields an empty result and no writes.
func (s *Service) MarkFromFrame(ctx context.Context, classID int64, frame []byte, tolerance *float64) (*MarkResult, error) {
	class, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return nil, &attendance.UnknownRosterError{ClassID: classID}
	}

	matcher := s.matcherFor(tolerance)
	day := s.Today()
	result := &MarkResult{
		Date:      day,
		Tolerance: matcher.Tolerance(),
		Present:   []StudentRef{},
		Absent:    []StudentRef{},
	}

	members, err := s.loadRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		logging.Info(logging.Fields{"class_id": classID}, "no enrolled students, nothing to mark")
		return result, nil
	}

	detections, err := s.encoder.ExtractEmbeddings(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	result.FacesDetected = len(detections)

	matched, err := matcher.Match(detections, rosterEntries(members))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(members))
	refs := make(map[int64]StudentRef, len(members))
	for i, m := range members {
		ids[i] = m.student.ID
		refs[m.student.ID] = StudentRef{
			ID:         m.student.ID,
			Name:       m.student.Name,
			RollNumber: m.student.RollNumber,
			Photo:      m.student.Photo,
		}
	}

	outcome, err := s.reconciler.Reconcile(ctx, classID, matched, ids, day)
	if err != nil {
		return nil, err
	}

	for _, id := range outcome.Present {
		result.Present = append(result.Present, refs[id])
	}
	for _, id := range outcome.Absent {
		result.Absent = append(result.Absent, refs[id])
	}
	result.TotalStudents = outcome.Total()
	result.PresentCount = len(outcome.Present)
	result.AbsentCount = len(outcome.Absent)

	logging.Info(logging.Fields{
		"class_id": classID,
		"date":     day.String(),
		"faces":    result.FacesDetected,
		"present":  result.PresentCount,
		"absent":   result.AbsentCount,
	}, "attendance marked")
	return result, nil
}

// AttendanceRecord is one student's record in the history.
type AttendanceRecord struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	Name       string    `json:"student_name"`
	RollNumber *string   `json:"roll_number"`
	Present    bool      `json:"is_present"`
	MarkedAt   time.Time `json:"marked_at"`
}

// DayHistory groups the records of one day.
type DayHistory struct {
	Date         attendance.Day     `json:"date"`
	TotalCount   int                `json:"total_count"`
	PresentCount int                `json:"present_count"`
	AbsentCount  int                `json:"absent_count"`
	Records      []AttendanceRecord `json:"records"`
}

// History returns the attendance of a class grouped by day, newest first.
func (s *Service) History(ctx context.Context, classID int64) ([]DayHistory, error) {
	if _, err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}
	records, err := s.store.ListAttendance(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	history := []DayHistory{}
	index := make(map[attendance.Day]int)
	for _, r := range records {
		day := attendance.DayOf(r.Day)
		i, ok := index[day]
		if !ok {
			i = len(history)
			index[day] = i
			history = append(history, DayHistory{Date: day, Records: []AttendanceRecord{}})
		}
		h := &history[i]
		h.Records = append(h.Records, AttendanceRecord{
			ID:         r.ID,
			StudentID:  r.StudentID,
			Name:       r.StudentName,
			RollNumber: r.RollNumber,
			Present:    r.Present,
			MarkedAt:   r.MarkedAt,
		})
		h.TotalCount++
		if r.Present {
			h.PresentCount++
		} else {
			h.AbsentCount++
		}
	}
	slices.SortStableFunc(history, func(a, b DayHistory) int {
		switch {
		case b.Date.Before(a.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		}
		return 0
	})
	return history, nil
}

// SetPresence overrides a record by hand.
func (s *Service) SetPresence(ctx context.Context, id int64, present bool) (*database.StoredAttendance, error) {
	if err := s.store.SetPresence(ctx, id, present, s.now()); err != nil {
		return nil, fmt.Errorf("set presence: %w", err)
	}
	rec, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("attendance %d: %w", id, database.ErrNotFound)
	}
	logging.Info(logging.Fields{"attendance_id": id, "present": present}, "attendance overridden")
	return rec, nil
}

// DeleteAttendance removes one record.
func (s *Service) DeleteAttendance(ctx context.Context, id int64) error {
	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
