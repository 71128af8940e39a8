package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/pgvector/pgvector-go"
)

const (
	studentColumns      = `id, class_id, name, roll_number, face_embedding, photo, created_at`
	classRollConstraint = "uq_students_class_roll"
)

// GetStudent retrieves a student by ID, returns nil if not found
func (s *Store) GetStudent(ctx context.Context, id int64) (*database.StoredStudent, error) {
	var st database.StoredStudent
	err := s.pool.Get(ctx, &st, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
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
	err := s.pool.Select(ctx, &students,
		`SELECT `+studentColumns+` FROM students WHERE class_id = $1 ORDER BY id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListEnrolledStudents returns students of a class with face data ordered by ID
func (s *Store) ListEnrolledStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	students := []database.StoredStudent{}
	err := s.pool.Select(ctx, &students, `
		SELECT `+studentColumns+` FROM students
		WHERE class_id = $1 AND face_embedding IS NOT NULL
		ORDER BY id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

// CreateStudent inserts a student
func (s *Store) CreateStudent(ctx context.Context, student *database.StoredStudent) error {
	vec, err := faceVector(student.FaceEmbedding)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO students (class_id, name, roll_number, face_embedding, face_vector, photo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, student.ClassID, student.Name, student.RollNumber, nullBytes(student.FaceEmbedding), vec, nullBytes(student.Photo),
	).Scan(&student.ID, &student.CreatedAt)
	if isUniqueViolation(err, classRollConstraint) {
		return database.ErrDuplicateRollNumber
	}
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateStudent updates name, roll number and face data of a student
func (s *Store) UpdateStudent(ctx context.Context, student *database.StoredStudent) error {
	vec, err := faceVector(student.FaceEmbedding)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	res, err := s.pool.Exec(ctx, `
		UPDATE students
		SET name = $2, roll_number = $3, face_embedding = $4, face_vector = $5, photo = $6
		WHERE id = $1
	`, student.ID, student.Name, student.RollNumber, nullBytes(student.FaceEmbedding), vec, nullBytes(student.Photo))
	if isUniqueViolation(err, classRollConstraint) {
		return database.ErrDuplicateRollNumber
	}
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student and its attendance records
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student attendance: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
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

// NearestStudents ranks enrolled students of a class by pgvector L2 distance.
// The column holds float32 values, so candidates are over-fetched and their
// distances recomputed from the stored float64 embedding.
func (s *Store) NearestStudents(ctx context.Context, classID int64, embedding facematch.Embedding, limit int) ([]database.StudentDistance, error) {
	if limit <= 0 {
		limit = constants.DefaultExplainLimit
	}
	var rows []struct {
		ID            int64  `db:"id"`
		FaceEmbedding []byte `db:"face_embedding"`
	}
	err := s.pool.Select(ctx, &rows, `
		SELECT id, face_embedding FROM students
		WHERE class_id = $1 AND face_vector IS NOT NULL
		ORDER BY face_vector <-> $2
		LIMIT $3
	`, classID, pgvector.NewVector(embedding.Float32()), limit*constants.NearestOverfetch)
	if err != nil {
		return nil, fmt.Errorf("nearest students: %w", err)
	}

	roster := make([]facematch.RosterEntry, 0, len(rows))
	for _, r := range rows {
		emb, err := facematch.Decode(r.FaceEmbedding)
		if err != nil {
			return nil, fmt.Errorf("decode embedding of student %d: %w", r.ID, err)
		}
		roster = append(roster, facematch.RosterEntry{ID: r.ID, Embedding: emb})
	}
	ranked, err := facematch.NewMatcher(facematch.DefaultTolerance).Rank(embedding, roster, limit)
	if err != nil {
		return nil, err
	}

	out := make([]database.StudentDistance, len(ranked))
	for i, c := range ranked {
		out[i] = database.StudentDistance{StudentID: c.ID, Distance: c.Distance}
	}
	return out, nil
}
