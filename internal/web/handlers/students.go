package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/database"
)

// StudentsHandler handles enrollment endpoints
type StudentsHandler struct {
	service *classroom.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(service *classroom.Service) *StudentsHandler {
	return &StudentsHandler{service: service}
}

// StudentResponse represents a student in API responses. Face data is never returned,
// Photo is the downscaled enrollment photo and encodes as base64.
type StudentResponse struct {
	ID          int64     `json:"id"`
	ClassID     int64     `json:"class_id"`
	Name        string    `json:"name"`
	RollNumber  *string   `json:"roll_number"`
	HasFaceData bool      `json:"has_face_data"`
	Photo       []byte    `json:"photo"`
	CreatedAt   time.Time `json:"created_at"`
}

func studentToResponse(s *database.StoredStudent) StudentResponse {
	return StudentResponse{
		ID:          s.ID,
		ClassID:     s.ClassID,
		Name:        s.Name,
		RollNumber:  s.RollNumber,
		HasFaceData: s.HasFaceData(),
		Photo:       s.Photo,
		CreatedAt:   s.CreatedAt,
	}
}

type enrollRequest struct {
	Name       string  `json:"name" validate:"required,max=100"`
	RollNumber *string `json:"roll_number" validate:"omitempty,max=20"`
	Photo      string  `json:"photo_base64" validate:"required"`
}

type updateStudentRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	RollNumber *string `json:"roll_number" validate:"omitempty,max=20"`
	Photo      string  `json:"photo_base64"`
}

// List returns the students of a class
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	students, err := h.service.ListStudents(r.Context(), classID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	out := make([]StudentResponse, len(students))
	for i := range students {
		out[i] = studentToResponse(&students[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// Enroll adds a student with an enrollment photo to a class
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	var req enrollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	photo, err := decodeImage(req.Photo)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.service.Enroll(r.Context(), classID, classroom.Enrollment{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Photo:      photo,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, studentToResponse(student))
}

// Get returns a student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, studentToResponse(student))
}

// Update changes a student; a new photo replaces the face data
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req updateStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	upd := classroom.StudentUpdate{Name: req.Name, RollNumber: req.RollNumber}
	if req.Photo != "" {
		photo, err := decodeImage(req.Photo)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.Photo = photo
	}

	student, err := h.service.UpdateStudent(r.Context(), id, upd)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, studentToResponse(student))
}

// Delete removes a student and its attendance records
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type photoCheckRequest struct {
	Photo string `json:"photo_base64" validate:"required"`
}

// PhotoCheckResponse tells whether a photo would be accepted for enrollment.
type PhotoCheckResponse struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// CheckPhoto runs the enrollment quality check without storing anything
func (h *StudentsHandler) CheckPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	photo, err := decodeImage(req.Photo)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.service.CheckPhoto(r.Context(), photo)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PhotoCheckResponse{
		Valid:   q.Valid,
		Reason:  q.Reason.String(),
		Message: q.Message(),
	})
}
