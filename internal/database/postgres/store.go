package postgres

import (
	"errors"

	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

// Store provides PostgreSQL-backed class, student and attendance storage
type Store struct {
	pool *Pool
}

// NewStore creates a new PostgreSQL store
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// faceVector converts an encoded embedding into the pgvector column value.
// Students without face data get NULL.
func faceVector(blob []byte) (any, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	emb, err := facematch.Decode(blob)
	if err != nil {
		return nil, err
	}
	return pgvector.NewVector(emb.Float32()), nil
}

// nullBytes stores empty face data and photos as NULL so enrolled-student filters stay simple.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ database.Store = (*Store)(nil)
var _ database.NearestStudentFinder = (*Store)(nil)
