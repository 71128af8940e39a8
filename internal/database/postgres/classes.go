package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/database"
)

const classColumns = `
	c.id, c.name, c.subject, c.search_key, c.created_at,
	(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count`

// GetClass retrieves a class by ID, returns nil if not found
func (s *Store) GetClass(ctx context.Context, id int64) (*database.StoredClass, error) {
	var c database.StoredClass
	err := s.pool.Get(ctx, &c, `SELECT `+classColumns+` FROM classes c WHERE c.id = $1`, id)
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
		query += ` WHERE c.search_key LIKE $1`
		args = append(args, database.LikePattern(search))
	}
	query += ` ORDER BY c.name, c.id`

	classes := []database.StoredClass{}
	if err := s.pool.Select(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// CreateClass inserts a class
func (s *Store) CreateClass(ctx context.Context, class *database.StoredClass) error {
	class.SearchKey = database.SearchKey(class.Name, class.Subject)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO classes (name, subject, search_key)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, class.Name, class.Subject, class.SearchKey).Scan(&class.ID, &class.CreatedAt)
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateClass updates name and subject of a class
func (s *Store) UpdateClass(ctx context.Context, class *database.StoredClass) error {
	class.SearchKey = database.SearchKey(class.Name, class.Subject)
	err := s.pool.QueryRow(ctx, `
		UPDATE classes SET name = $2, subject = $3, search_key = $4
		WHERE id = $1
		RETURNING created_at
	`, class.ID, class.Name, class.Subject, class.SearchKey).Scan(&class.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// DeleteClass removes a class with its students and their attendance records
func (s *Store) DeleteClass(ctx context.Context, id int64) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class attendance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class students: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
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
