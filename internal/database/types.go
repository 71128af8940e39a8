package database

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by updates and deletes of rows that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRollNumber is returned when a roll number is already used in the class.
	ErrDuplicateRollNumber = errors.New("roll number already exists in this class")
)

// StoredClass represents a class (roster) stored in the database
type StoredClass struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Subject   string    `db:"subject"`
	SearchKey string    `db:"search_key"` // normalized name and subject, see SearchKey
	CreatedAt time.Time `db:"created_at"`

	// Populated by reads only
	StudentCount int `db:"student_count"`
}

// StoredStudent represents an enrolled student.
type StoredStudent struct {
	ID         int64     `db:"id"`
	ClassID    int64     `db:"class_id"`
	Name       string    `db:"name"`
	RollNumber *string   `db:"roll_number"` // nil when not assigned
	CreatedAt  time.Time `db:"created_at"`

	// FaceEmbedding is the face descriptor encoded with facematch.Encode.
	// Empty for students enrolled without face data.
	FaceEmbedding []byte `db:"face_embedding"`

	// Photo is a downscaled JPEG of the enrollment photo, nil when none is kept.
	Photo []byte `db:"photo"`
}

// HasFaceData reports whether the student can be recognised.
func (s *StoredStudent) HasFaceData() bool {
	return len(s.FaceEmbedding) > 0
}

// StoredAttendance is one student's attendance record for one day.
type StoredAttendance struct {
	ID        int64     `db:"id"`
	StudentID int64     `db:"student_id"`
	ClassID   int64     `db:"class_id"`
	Day       time.Time `db:"day"` // DATE, midnight
	Present   bool      `db:"is_present"`
	MarkedAt  time.Time `db:"marked_at"`

	// Joined from students on reads
	StudentName string  `db:"student_name"`
	RollNumber  *string `db:"roll_number"`
}

// StudentDistance is a student ranked by embedding distance to a query face.
type StudentDistance struct {
	StudentID int64
	Distance  float64
}
