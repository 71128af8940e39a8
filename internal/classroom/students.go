package classroom

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// Enrollment is a new student with the enrollment photo.
type Enrollment struct {
	Name       string
	RollNumber *string
	Photo      []byte // encoded image with exactly one face
}

// StudentUpdate holds the fields to change; nil fields are kept.
// A non-empty Photo replaces the face data after passing the quality check.
type StudentUpdate struct {
	Name       *string
	RollNumber *string
	Photo      []byte
}

// Enroll checks the photo, computes the face embedding and stores the student.
func (s *Service) Enroll(ctx context.Context, classID int64, e Enrollment) (*database.StoredStudent, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: student name is required", ErrInvalidInput)
	}
	if len(e.Photo) == 0 {
		return nil, fmt.Errorf("%w: photo is required", ErrInvalidInput)
	}
	if _, err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}

	blob, err := s.faceData(ctx, e.Photo)
	if err != nil {
		return nil, err
	}

	student := &database.StoredStudent{
		ClassID:       classID,
		Name:          name,
		RollNumber:    normalizeRoll(e.RollNumber),
		FaceEmbedding: blob,
		Photo:         studentPhoto(e.Photo),
	}
	if err := s.store.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("enroll student: %w", err)
	}
	logging.Info(logging.Fields{"class_id": classID, "student_id": student.ID, "name": name}, "student enrolled")
	return student, nil
}

// ListStudents returns all students of a class.
func (s *Service) ListStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	if _, err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// GetStudent returns a student or database.ErrNotFound.
func (s *Service) GetStudent(ctx context.Context, id int64) (*database.StoredStudent, error) {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("student %d: %w", id, database.ErrNotFound)
	}
	return st, nil
}

// UpdateStudent applies a partial update.
func (s *Service) UpdateStudent(ctx context.Context, id int64, upd StudentUpdate) (*database.StoredStudent, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: student name cannot be empty", ErrInvalidInput)
		}
		st.Name = name
	}
	if upd.RollNumber != nil {
		st.RollNumber = normalizeRoll(upd.RollNumber)
	}
	if len(upd.Photo) > 0 {
		blob, err := s.faceData(ctx, upd.Photo)
		if err != nil {
			return nil, err
		}
		st.FaceEmbedding = blob
		st.Photo = studentPhoto(upd.Photo)
	}
	if err := s.store.UpdateStudent(ctx, st); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return st, nil
}

// DeleteStudent removes a student and its attendance records.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// CheckPhoto reports whether photo would be accepted for enrollment without storing anything.
func (s *Service) CheckPhoto(ctx context.Context, photo []byte) (detector.Quality, error) {
	if len(photo) == 0 {
		return detector.Quality{}, fmt.Errorf("%w: photo is required", ErrInvalidInput)
	}
	q, err := s.encoder.QualityCheck(ctx, photo)
	if err != nil {
		return detector.Quality{}, fmt.Errorf("quality check: %w", err)
	}
	return q, nil
}

// studentPhoto downscales an accepted enrollment photo for display.
// Undecodable input keeps no photo.
func studentPhoto(photo []byte) []byte {
	thumb, err := detector.Thumbnail(photo, constants.StudentPhotoMaxDim)
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "enrollment photo not kept")
		return nil
	}
	return thumb
}

// faceData returns the encoded embedding of the single face in photo.
func (s *Service) faceData(ctx context.Context, photo []byte) ([]byte, error) {
	emb, q, err := s.encoder.EnrollmentEmbedding(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("face encoding: %w", err)
	}
	if !q.Valid {
		return nil, &QualityError{Quality: q}
	}
	return facematch.Encode(emb), nil
}

// normalizeRoll trims the roll number; blank means unassigned.
func normalizeRoll(roll *string) *string {
	if roll == nil {
		return nil
	}
	v := strings.TrimSpace(*roll)
	if v == "" {
		return nil
	}
	return &v
}
