package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/database"
)

// ClassesHandler handles class endpoints
type ClassesHandler struct {
	service *classroom.Service
}

// NewClassesHandler creates a new classes handler
func NewClassesHandler(service *classroom.Service) *ClassesHandler {
	return &ClassesHandler{service: service}
}

// ClassResponse represents a class in API responses
type ClassResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func classToResponse(c *database.StoredClass) ClassResponse {
	return ClassResponse{
		ID:           c.ID,
		Name:         c.Name,
		Subject:      c.Subject,
		StudentCount: c.StudentCount,
		CreatedAt:    c.CreatedAt,
	}
}

type createClassRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Subject string `json:"subject" validate:"max=100"`
}

type updateClassRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Subject *string `json:"subject" validate:"omitempty,max=100"`
}

// List returns classes, filtered by ?search= on name or subject
func (h *ClassesHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	out := make([]ClassResponse, len(classes))
	for i := range classes {
		out[i] = classToResponse(&classes[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// Create creates a class
func (h *ClassesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if !decodeBody(w, r, &req) {
		return
	}
	class, err := h.service.CreateClass(r.Context(), req.Name, req.Subject)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, classToResponse(class))
}

// Get returns a class with its student count
func (h *ClassesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	class, err := h.service.GetClass(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, classToResponse(class))
}

// Update changes the name or subject of a class
func (h *ClassesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req updateClassRequest
	if !decodeBody(w, r, &req) {
		return
	}
	class, err := h.service.UpdateClass(r.Context(), id, classroom.ClassUpdate{Name: req.Name, Subject: req.Subject})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, classToResponse(class))
}

// Delete removes a class with its students and attendance
func (h *ClassesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteClass(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
