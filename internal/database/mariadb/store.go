package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/database"
)

// errDuplicateEntry is the MariaDB error number of a unique key violation.
const errDuplicateEntry = 1062

const (
	classColumns = `
		c.id, c.name, c.subject, c.search_key, c.created_at,
		(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count`
	studentColumns    = `id, class_id, name, roll_number, face_embedding, photo, created_at`
	attendanceColumns = `
		a.id, a.student_id, a.class_id, a.day, a.is_present, a.marked_at,
		s.name AS student_name, s.roll_number`
)

// Store provides MariaDB-backed class, student and attendance storage
type Store struct {
	pool *Pool
	now  func() time.Time
}

// NewStore creates a new MariaDB store
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// GetClass retrieves a class by ID, returns nil if not found
func (s *Store) GetClass(ctx context.Context, id int64) (*database.StoredClass, error) {
	var c database.StoredClass
	err := s.pool.db.GetContext(ctx, &c, `SELECT `+classColumns+` FROM classes c WHERE c.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &c, nil
}

// ListClasses returns classes ordered by name, filtered by the normalized search text
func (s *Store) ListClasses(ctx context.Context, search string) ([]database.StoredClass, error) {
	query := `SELECT ` + classColumns + ` FROM classes c`
	var args []any
	if database.NormalizeSearchText(search) != "" {
		query += ` WHERE c.search_key LIKE ?`
		args = append(args, database.LikePattern(search))
	}
	query += ` ORDER BY c.name, c.id`

	classes := []database.StoredClass{}
	if err := s.pool.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// CreateClass inserts a class
func (s *Store) CreateClass(ctx context.Context, class *database.StoredClass) error {
	class.SearchKey = database.SearchKey(class.Name, class.Subject)
	class.CreatedAt = s.now()
	res, err := s.pool.db.ExecContext(ctx,
		`INSERT INTO classes (name, subject, search_key, created_at) VALUES (?, ?, ?, ?)`,
		class.Name, class.Subject, class.SearchKey, class.CreatedAt)
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	if class.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateClass updates name and subject of a class
func (s *Store) UpdateClass(ctx context.Context, class *database.StoredClass) error {
	// MariaDB reports zero affected rows for updates that change nothing.
	existing, err := s.GetClass(ctx, class.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return database.ErrNotFound
	}
	class.SearchKey = database.SearchKey(class.Name, class.Subject)
	class.CreatedAt = existing.CreatedAt
	_, err = s.pool.db.ExecContext(ctx,
		`UPDATE classes SET name = ?, subject = ?, search_key = ? WHERE id = ?`,
		class.Name, class.Subject, class.SearchKey, class.ID)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// DeleteClass removes a class with its students and their attendance records
func (s *Store) DeleteClass(ctx context.Context, id int64) error {
	tx, err := s.pool.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE class_id = ?`, id); err != nil {
		return fmt.Errorf("delete class attendance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE class_id = ?`, id); err != nil {
		return fmt.Errorf("delete class students: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}

// GetStudent retrieves a student by ID, returns nil if not found
func (s *Store) GetStudent(ctx context.Context, id int64) (*database.StoredStudent, error) {
	var st database.StoredStudent
	err := s.pool.db.GetContext(ctx, &st, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

// ListStudents returns all students of a class ordered by ID
func (s *Store) ListStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	students := []database.StoredStudent{}
	err := s.pool.db.SelectContext(ctx, &students,
		`SELECT `+studentColumns+` FROM students WHERE class_id = ? ORDER BY id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListEnrolledStudents returns students of a class with face data ordered by ID
func (s *Store) ListEnrolledStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	students := []database.StoredStudent{}
	err := s.pool.db.SelectContext(ctx, &students,
		`SELECT `+studentColumns+` FROM students WHERE class_id = ? AND face_embedding IS NOT NULL ORDER BY id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

// CreateStudent inserts a student
func (s *Store) CreateStudent(ctx context.Context, student *database.StoredStudent) error {
	student.CreatedAt = s.now()
	res, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO students (class_id, name, roll_number, face_embedding, photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, student.ClassID, student.Name, student.RollNumber, nullBytes(student.FaceEmbedding), nullBytes(student.Photo), student.CreatedAt)
	if isDuplicateEntry(err) {
		return database.ErrDuplicateRollNumber
	}
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	if student.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateStudent updates name, roll number and face data of a student
func (s *Store) UpdateStudent(ctx context.Context, student *database.StoredStudent) error {
	existing, err := s.GetStudent(ctx, student.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return database.ErrNotFound
	}
	_, err = s.pool.db.ExecContext(ctx,
		`UPDATE students SET name = ?, roll_number = ?, face_embedding = ?, photo = ? WHERE id = ?`,
		student.Name, student.RollNumber, nullBytes(student.FaceEmbedding), nullBytes(student.Photo), student.ID)
	if isDuplicateEntry(err) {
		return database.ErrDuplicateRollNumber
	}
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// DeleteStudent removes a student and its attendance records
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	tx, err := s.pool.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE student_id = ?`, id); err != nil {
		return fmt.Errorf("delete student attendance: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// GetAttendance retrieves an attendance record by ID, returns nil if not found
func (s *Store) GetAttendance(ctx context.Context, id int64) (*database.StoredAttendance, error) {
	var a database.StoredAttendance
	err := s.pool.db.GetContext(ctx, &a, `
		SELECT `+attendanceColumns+`
		FROM attendances a JOIN students s ON s.id = a.student_id
		WHERE a.id = ?
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
	err := s.pool.db.SelectContext(ctx, &records, `
		SELECT `+attendanceColumns+`
		FROM attendances a JOIN students s ON s.id = a.student_id
		WHERE a.class_id = ?
		ORDER BY a.day DESC, s.name, a.id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ApplyMarks upserts one record per mark in a single transaction
func (s *Store) ApplyMarks(ctx context.Context, classID int64, day attendance.Day, marks []attendance.Mark, markedAt time.Time) error {
	tx, err := s.pool.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM classes WHERE id = ? LOCK IN SHARE MODE`, classID)
	if errors.Is(err, sql.ErrNoRows) {
		return &attendance.UnknownRosterError{ClassID: classID}
	}
	if err != nil {
		return fmt.Errorf("resolve class: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO attendances (student_id, class_id, day, is_present, marked_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE is_present = VALUES(is_present), marked_at = VALUES(marked_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare attendance upsert: %w", err)
	}
	defer stmt.Close()

	markedAt = markedAt.UTC()
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
	existing, err := s.GetAttendance(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return database.ErrNotFound
	}
	_, err = s.pool.db.ExecContext(ctx,
		`UPDATE attendances SET is_present = ?, marked_at = ? WHERE id = ?`, present, markedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

// DeleteAttendance removes a record
func (s *Store) DeleteAttendance(ctx context.Context, id int64) error {
	res, err := s.pool.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

var _ database.Store = (*Store)(nil)
