package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusNotFound, ErrCodeNotFound, "report not found")

	if resp.Error != "Not Found" {
		t.Errorf("Expected Error 'Not Found', got '%s'", resp.Error)
	}
	if resp.Message != "report not found" {
		t.Errorf("Expected Message 'report not found', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("Expected Code ErrCodeNotFound, got '%s'", resp.Code)
	}
}

func TestBadRequestError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/reports/", nil)

	BadRequestError(w, r, "report id is required", map[string]string{"id": "required"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Code != ErrCodeBadRequest {
		t.Errorf("Expected Code ErrCodeBadRequest, got '%s'", resp.Code)
	}
	if resp.Fields["id"] != "required" {
		t.Errorf("Expected field 'id' error, got '%s'", resp.Fields["id"])
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		InternalError(w, r, "boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if w.Code != http.StatusInternalServerError || resp.Code != ErrCodeInternal {
		t.Errorf("Unexpected response %d %+v", w.Code, resp)
	}
	if resp.RequestID == "" {
		t.Error("Expected request ID to be set")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}

func TestRateLimitedError(t *testing.T) {
	w := httptest.NewRecorder()
	RateLimitedError(w, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
}

func TestMatchesETag(t *testing.T) {
	etag := etagFor([]byte(`{"id":"r1"}`))

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{etag, true},
		{`W/"0000000000000000", ` + etag, true},
		{"*", true},
		{`W/"0000000000000000"`, false},
	}
	for _, tt := range tests {
		if got := matchesETag(tt.header, etag); got != tt.want {
			t.Errorf("matchesETag(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}

	if etagFor([]byte("a")) == etagFor([]byte("b")) {
		t.Error("Different bodies should have different ETags")
	}
}
