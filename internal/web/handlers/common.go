package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON body into dst and validates it.
// On failure the response has already been written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// respondValidationError lists the failed fields in one message.
func respondValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	respondError(w, http.StatusBadRequest, "validation failed: "+strings.Join(msgs, ", "))
}

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, sanitizeForLog(raw))
	}
	return id, nil
}

// idParam parses the {id} parameter, answering 400 when it is invalid.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// decodeImage decodes a base64 image, with or without a data URL prefix.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		s = payload
	}
	s = strings.TrimSpace(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, errors.New("invalid base64 image")
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}

// respondServiceError maps domain errors to HTTP responses. Unexpected errors
// are logged with a trace ID that is returned to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unknown   *attendance.UnknownRosterError
		quality   *classroom.QualityError
		mismatch  *facematch.DimensionMismatchError
		malformed *facematch.MalformedEmbeddingError
	)
	switch {
	case errors.As(err, &unknown):
		respondError(w, http.StatusNotFound, "class not found")
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDuplicateRollNumber):
		respondError(w, http.StatusConflict, database.ErrDuplicateRollNumber.Error())
	case errors.As(err, &quality):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error":  quality.Error(),
			"reason": quality.Quality.Reason.String(),
		})
	case errors.Is(err, classroom.ErrInvalidInput), errors.Is(err, detector.ErrUndecodableImage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &mismatch), errors.As(err, &malformed):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, detector.ErrEncoderUnavailable):
		logging.Warn(logging.Fields{"error": err.Error(), "path": r.URL.Path}, "face encoder unavailable")
		respondError(w, http.StatusBadGateway, "face encoder unavailable")
	default:
		traceID := logging.ErrorWithTraceID(logging.Fields{
			"error":      err.Error(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": chiMiddleware.GetReqID(r.Context()),
		}, "request failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":    "internal server error",
			"trace_id": traceID,
		})
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !database.IsInitialized() {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"storage": database.BackendName(),
	})
}
