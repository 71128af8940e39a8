package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/database"
)

// AttendanceHandler handles marking, history and diagnostics endpoints
type AttendanceHandler struct {
	service *classroom.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *classroom.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// AttendanceResponse represents one attendance record in API responses
type AttendanceResponse struct {
	ID          int64          `json:"id"`
	StudentID   int64          `json:"student_id"`
	ClassID     int64          `json:"class_id"`
	StudentName string         `json:"student_name"`
	RollNumber  *string        `json:"roll_number"`
	Date        attendance.Day `json:"date"`
	Present     bool           `json:"is_present"`
	MarkedAt    time.Time      `json:"marked_at"`
}

func attendanceToResponse(a *database.StoredAttendance) AttendanceResponse {
	return AttendanceResponse{
		ID:          a.ID,
		StudentID:   a.StudentID,
		ClassID:     a.ClassID,
		StudentName: a.StudentName,
		RollNumber:  a.RollNumber,
		Date:        attendance.DayOf(a.Day),
		Present:     a.Present,
		MarkedAt:    a.MarkedAt,
	}
}

type markRequest struct {
	Frame     string   `json:"frame_base64" validate:"required"`
	Tolerance *float64 `json:"tolerance" validate:"omitempty,gt=0,lte=2"`
}

type explainRequest struct {
	Frame string `json:"frame_base64" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

type presenceRequest struct {
	Present *bool `json:"is_present" validate:"required"`
}

// Mark recognizes the students in a frame and records today's attendance
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	var req markRequest
	if !decodeBody(w, r, &req) {
		return
	}
	frame, err := decodeImage(req.Frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.MarkFromFrame(r.Context(), classID, frame, req.Tolerance)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// History returns the attendance of a class grouped by day
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), classID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Update overrides the presence flag of a record
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req presenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.service.SetPresence(r.Context(), id, *req.Present)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, attendanceToResponse(rec))
}

// Delete removes a record
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAttendance(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Explain lists the nearest enrolled students of every face in a frame
func (h *AttendanceHandler) Explain(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	var req explainRequest
	if !decodeBody(w, r, &req) {
		return
	}
	frame, err := decodeImage(req.Frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := h.service.Explain(r.Context(), classID, frame, req.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, exp)
}

// Conflicts lists enrolled students that look alike within ?tolerance=
func (h *AttendanceHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(w, r)
	if !ok {
		return
	}
	tolerance := h.service.Tolerance()
	var override *float64
	if raw := r.URL.Query().Get("tolerance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) || v > 2 {
			respondError(w, http.StatusBadRequest, "tolerance must be a number in (0, 2]")
			return
		}
		tolerance, override = v, &v
	}
	pairs, err := h.service.Conflicts(r.Context(), classID, override)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tolerance": tolerance,
		"conflicts": pairs,
	})
}
