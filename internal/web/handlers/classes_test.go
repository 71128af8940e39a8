package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestClassesHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	handler := NewClassesHandler(env.service)

	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, "POST", "/api/v1/classes", map[string]string{
		"name":    "Chemie 3A",
		"subject": "Chemie",
	}))
	assertStatusCode(t, recorder, http.StatusCreated)

	var created ClassResponse
	parseJSONResponse(t, recorder, &created)
	if created.ID == 0 || created.Name != "Chemie 3A" {
		t.Fatalf("created = %+v", created)
	}

	recorder = httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/classes/x", nil),
		map[string]string{"id": strconv.FormatInt(created.ID, 10)})
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var got ClassResponse
	parseJSONResponse(t, recorder, &got)
	if got.Subject != "Chemie" || got.StudentCount != 0 {
		t.Errorf("got = %+v", got)
	}
}

func TestClassesHandler_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := NewClassesHandler(env.service)

	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, "POST", "/api/v1/classes", map[string]string{"subject": "Art"}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "validation failed: name: required")
}

func TestClassesHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddClass("Dějepis", "Historie")
	env.store.AddClass("Fyzika", "Mechanika")
	handler := NewClassesHandler(env.service)

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?search=dejepis", 1},
		{"?search=MECH", 1},
		{"?search=chemie", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/classes"+tt.query, nil))
			assertStatusCode(t, recorder, http.StatusOK)

			var classes []ClassResponse
			parseJSONResponse(t, recorder, &classes)
			if len(classes) != tt.want {
				t.Errorf("got %d classes, want %d", len(classes), tt.want)
			}
		})
	}
}

func TestClassesHandler_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	classID, _ := env.seedClass()
	handler := NewClassesHandler(env.service)
	params := map[string]string{"id": strconv.FormatInt(classID, 10)}

	recorder := httptest.NewRecorder()
	handler.Update(recorder, requestWithChiParams(
		jsonRequest(t, "PUT", "/api/v1/classes/1", map[string]string{"name": "Biology 8B"}), params))
	assertStatusCode(t, recorder, http.StatusOK)

	var updated ClassResponse
	parseJSONResponse(t, recorder, &updated)
	if updated.Name != "Biology 8B" || updated.Subject != "Biology" {
		t.Errorf("updated = %+v", updated)
	}

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/classes/1", nil), params))
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/classes/1", nil), params))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestClassesHandler_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewClassesHandler(env.service)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, requestWithChiParams(httptest.NewRequest("GET", "/api/v1/classes/abc", nil),
		map[string]string{"id": "abc"}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, `invalid id "abc"`)
}

func TestClassesHandler_GetNotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewClassesHandler(env.service)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, requestWithChiParams(httptest.NewRequest("GET", "/api/v1/classes/77", nil),
		map[string]string{"id": "77"}))

	assertStatusCode(t, recorder, http.StatusNotFound)
}
