package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seenID string
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	req := httptest.NewRequest("POST", "/v0/streams", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("request id %q is not a uuid", seenID)
	}
	if rr.Header().Get("X-Request-ID") != seenID {
		t.Errorf("X-Request-ID = %q, want %q", rr.Header().Get("X-Request-ID"), seenID)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["status"] != float64(201) {
		t.Errorf("logged status = %v, want 201", entry["status"])
	}
	if entry["size"] != float64(7) {
		t.Errorf("logged size = %v, want 7", entry["size"])
	}
	if entry["path"] != "/v0/streams" {
		t.Errorf("logged path = %v", entry["path"])
	}
}

func TestLogging_KeepsClientRequestID(t *testing.T) {
	id := uuid.NewString()

	handler := Logging(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(okHandler)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", id)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") != id {
		t.Errorf("X-Request-ID = %q, want %q", rr.Header().Get("X-Request-ID"), id)
	}

	// Non-uuid ids are replaced.
	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
		t.Errorf("unexpected X-Request-ID %q", got)
	}
}
