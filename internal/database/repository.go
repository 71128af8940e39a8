package database

import (
	"context"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/facematch"
)

// ClassReader provides read-only access to classes
type ClassReader interface {
	// GetClass retrieves a class with its student count, returns nil if not found
	GetClass(ctx context.Context, id int64) (*StoredClass, error)
	// ListClasses returns classes ordered by name. A non-empty search matches
	// the normalized name or subject (case and diacritics insensitive)
	ListClasses(ctx context.Context, search string) ([]StoredClass, error)
}

// ClassWriter provides write access to classes
type ClassWriter interface {
	ClassReader

	// CreateClass inserts a class and sets its ID and CreatedAt
	CreateClass(ctx context.Context, class *StoredClass) error
	// UpdateClass updates name and subject, returns ErrNotFound for unknown IDs
	UpdateClass(ctx context.Context, class *StoredClass) error
	// DeleteClass removes the class with its students and their attendance records
	// in one transaction
	DeleteClass(ctx context.Context, id int64) error
}

// StudentReader provides read-only access to students
type StudentReader interface {
	// GetStudent retrieves a student by ID, returns nil if not found
	GetStudent(ctx context.Context, id int64) (*StoredStudent, error)
	// ListStudents returns all students of a class ordered by ID
	ListStudents(ctx context.Context, classID int64) ([]StoredStudent, error)
	// ListEnrolledStudents returns students of a class that have face data, ordered by ID.
	// This is the roster used for matching.
	ListEnrolledStudents(ctx context.Context, classID int64) ([]StoredStudent, error)
}

// StudentWriter provides write access to students
type StudentWriter interface {
	StudentReader

	// CreateStudent inserts a student and sets its ID and CreatedAt.
	// Returns ErrDuplicateRollNumber when the roll number is taken in the class
	CreateStudent(ctx context.Context, student *StoredStudent) error
	// UpdateStudent updates name, roll number and face data
	UpdateStudent(ctx context.Context, student *StoredStudent) error
	// DeleteStudent removes the student and its attendance records in one transaction
	DeleteStudent(ctx context.Context, id int64) error
}

// NearestStudentFinder is implemented by stores that can rank enrolled students
// by embedding distance natively (pgvector). Stores without it are ranked in memory.
type NearestStudentFinder interface {
	// NearestStudents returns up to limit enrolled students of a class closest to embedding
	NearestStudents(ctx context.Context, classID int64, embedding facematch.Embedding, limit int) ([]StudentDistance, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// GetAttendance retrieves a record by ID, returns nil if not found
	GetAttendance(ctx context.Context, id int64) (*StoredAttendance, error)
	// ListAttendance returns all records of a class, newest day first, then by student name
	ListAttendance(ctx context.Context, classID int64) ([]StoredAttendance, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader
	attendance.Ledger

	// SetPresence overrides the presence flag of a record, returns ErrNotFound for unknown IDs
	SetPresence(ctx context.Context, id int64, present bool, markedAt time.Time) error
	// DeleteAttendance removes a record, returns ErrNotFound for unknown IDs
	DeleteAttendance(ctx context.Context, id int64) error
}

// Store groups every repository of one backend.
type Store interface {
	ClassWriter
	StudentWriter
	AttendanceWriter
}
