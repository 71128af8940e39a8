package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

func TestDecodeImage(t *testing.T) {
	raw := []byte("\x89PNG fake")
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain base64", std, false},
		{"data url", "data:image/png;base64," + std, false},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw), false},
		{"surrounding whitespace", "  " + std + "\n", false},
		{"data url without comma", "data:image/png;base64", true},
		{"not base64", "!!!", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeImage(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, raw) {
				t.Errorf("decodeImage() = %q, want %q", got, raw)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"id": tt.value})
			got, err := parseID(req, "id")
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("parseID(%q) = %d, %v", tt.value, got, err)
			}
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stderr)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown roster", &attendance.UnknownRosterError{ClassID: 3}, http.StatusNotFound},
		{"not found", fmt.Errorf("class 3: %w", database.ErrNotFound), http.StatusNotFound},
		{"duplicate roll", fmt.Errorf("enroll: %w", database.ErrDuplicateRollNumber), http.StatusConflict},
		{"quality", &classroom.QualityError{Quality: detector.Quality{Reason: detector.NoFace}}, http.StatusBadRequest},
		{"invalid input", fmt.Errorf("%w: name", classroom.ErrInvalidInput), http.StatusBadRequest},
		{"undecodable", fmt.Errorf("%w: bad", detector.ErrUndecodableImage), http.StatusBadRequest},
		{"dimension mismatch", &facematch.DimensionMismatchError{Want: 128, Got: 3}, http.StatusUnprocessableEntity},
		{"malformed", fmt.Errorf("student 2: %w", &facematch.MalformedEmbeddingError{Length: 5}), http.StatusUnprocessableEntity},
		{"encoder down", fmt.Errorf("extract: %w", detector.ErrEncoderUnavailable), http.StatusBadGateway},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondServiceError(recorder, httptest.NewRequest("POST", "/api/v1/x", nil), tt.err)
			assertStatusCode(t, recorder, tt.status)
		})
	}
}

func TestRespondServiceErrorTraceID(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stderr)

	recorder := httptest.NewRecorder()
	respondServiceError(recorder, httptest.NewRequest("GET", "/api/v1/classes", nil), errors.New("connection refused"))

	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["error"] != "internal server error" || resp["trace_id"] == "" {
		t.Errorf("response = %v", resp)
	}
	if strings.Contains(recorder.Body.String(), "connection refused") {
		t.Error("internal error details leaked to the client")
	}
	if !strings.Contains(buf.String(), resp["trace_id"]) {
		t.Error("trace ID not logged")
	}
}

func TestDecodeBodyValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", "{", errInvalidRequestBody},
		{"missing name", `{"subject":"Math"}`, "validation failed: name: required"},
		{"name too long", `{"name":"` + strings.Repeat("x", 101) + `"}`, "validation failed: name: max=100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/classes", strings.NewReader(tt.body))
			var dst createClassRequest
			if decodeBody(recorder, req, &dst) {
				t.Fatal("expected decodeBody to fail")
			}
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tt.message)
		})
	}
}
