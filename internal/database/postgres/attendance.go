package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/database"
)

const attendanceColumns = `
	a.id, a.student_id, a.class_id, a.day, a.is_present, a.marked_at,
	s.name AS student_name, s.roll_number`

// GetAttendance retrieves an attendance record by ID, returns nil if not found
func (s *Store) GetAttendance(ctx context.Context, id int64) (*database.StoredAttendance, error) {
	var a database.StoredAttendance
	err := s.pool.Get(ctx, &a, `
		SELECT `+attendanceColumns+`
		FROM attendances a JOIN students s ON s.id = a.student_id
		WHERE a.id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &a, nil
}

// ListAttendance returns records of a class, newest day first, then by student name
func (s *Store) ListAttendance(ctx context.Context, classID int64) ([]database.StoredAttendance, error) {
	records := []database.StoredAttendance{}
	err := s.pool.Select(ctx, &records, `
		SELECT `+attendanceColumns+`
		FROM attendances a JOIN students s ON s.id = a.student_id
		WHERE a.class_id = $1
		ORDER BY a.day DESC, s.name, a.id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ApplyMarks upserts one record per mark in a single transaction.
// Concurrent calls for the same (student, day) serialize on the unique key,
// the last one to commit wins.
func (s *Store) ApplyMarks(ctx context.Context, classID int64, day attendance.Day, marks []attendance.Mark, markedAt time.Time) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply marks: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM classes WHERE id = $1 FOR SHARE`, classID)
	if errors.Is(err, sql.ErrNoRows) {
		return &attendance.UnknownRosterError{ClassID: classID}
	}
	if err != nil {
		return fmt.Errorf("resolve class: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO attendances (student_id, class_id, day, is_present, marked_at)
		VALUES ($1, $2, $3::date, $4, $5)
		ON CONFLICT (student_id, day) DO UPDATE SET
			is_present = EXCLUDED.is_present,
			marked_at = EXCLUDED.marked_at
	`)
	if err != nil {
		return fmt.Errorf("prepare attendance upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range marks {
		if _, err := stmt.ExecContext(ctx, m.StudentID, classID, day.String(), m.Present, markedAt); err != nil {
			return fmt.Errorf("upsert attendance of student %d: %w", m.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

// SetPresence overrides the presence flag of a record
func (s *Store) SetPresence(ctx context.Context, id int64, present bool, markedAt time.Time) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE attendances SET is_present = $2, marked_at = $3 WHERE id = $1`, id, present, markedAt)
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteAttendance removes a record
func (s *Store) DeleteAttendance(ctx context.Context, id int64) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}
