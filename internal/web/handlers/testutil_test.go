package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/config"
	"github.com/kozaktomas/class-attendance/internal/database/mock"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/facematch"
)

var testNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Attendance.TimeZone = "UTC"
	return cfg
}

// fakeEncoder returns canned embeddings instead of calling the encoder service
type fakeEncoder struct {
	detections []facematch.Embedding
	extractErr error
	enrollEmb  facematch.Embedding
	quality    detector.Quality
	enrollErr  error
}

func (f *fakeEncoder) ExtractEmbeddings(context.Context, []byte) ([]facematch.Embedding, error) {
	return f.detections, f.extractErr
}

func (f *fakeEncoder) EnrollmentEmbedding(context.Context, []byte) (facematch.Embedding, detector.Quality, error) {
	if f.enrollErr != nil || !f.quality.Valid {
		return nil, f.quality, f.enrollErr
	}
	return f.enrollEmb, f.quality, nil
}

func (f *fakeEncoder) QualityCheck(context.Context, []byte) (detector.Quality, error) {
	return f.quality, f.enrollErr
}

// testEnv bundles a service backed by the mock store
type testEnv struct {
	store   *mock.MockStore
	encoder *fakeEncoder
	service *classroom.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewMockStore()
	enc := &fakeEncoder{quality: detector.Quality{Valid: true}, enrollEmb: facematch.Embedding{0.3, 0.3, 0.3}}
	return &testEnv{
		store:   store,
		encoder: enc,
		service: classroom.New(store, enc, classroom.Options{
			Tolerance: 0.6,
			Now:       func() time.Time { return testNow },
		}),
	}
}

// seedClass adds a class with students on the unit axes and returns the IDs
func (e *testEnv) seedClass() (classID int64, students []int64) {
	classID = e.store.AddClass("Biology 7B", "Biology")
	for i, name := range []string{"Ada", "Ben", "Cid"} {
		emb := make(facematch.Embedding, 3)
		emb[i] = 1
		students = append(students, e.store.AddStudent(classID, name, facematch.Encode(emb)))
	}
	return classID, students
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// fakeImage returns base64 data accepted by decodeImage
func fakeImage() string {
	return base64.StdEncoding.EncodeToString([]byte("\xff\xd8\xff fake jpeg"))
}

// realImage returns a base64 JPEG of the given size
func realImage(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 120, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
