package video

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/", APIKey: "secret", CDNURL: "https://cdn.test"}, srv.Client())
}

func TestCreateStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/stream" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}

		var body struct {
			Name   string `json:"name"`
			Record bool   `json:"record"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Name != "gm frens" || !body.Record {
			t.Errorf("unexpected body %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s1","name":"gm frens","streamKey":"key-1","playbackId":"pb1","extra":true}`))
	})

	s, err := c.CreateStream(context.Background(), "gm frens", true)
	if err != nil {
		t.Fatalf("CreateStream failed: %v", err)
	}
	if s.ID != "s1" || s.StreamKey != "key-1" || s.PlaybackID != "pb1" {
		t.Errorf("unexpected stream %+v", s)
	}
	if got := c.PlaybackURL(s.PlaybackID); got != "https://cdn.test/hls/pb1/index.m3u8" {
		t.Errorf("PlaybackURL = %q", got)
	}
}

func TestCreateStream_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":["invalid api key"]}`, ErrBackend},
		{"server error", http.StatusInternalServerError, `oops`, ErrBackend},
		{"missing fields", http.StatusCreated, `{"id":"s1"}`, ErrInvalidResponse},
		{"not json", http.StatusOK, `<html>`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.CreateStream(context.Background(), "x", true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	if _, err := c.CreateStream(context.Background(), "x", false); !errors.Is(err, ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
}

func TestPlaybackInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/playback/pb1":
			w.Write([]byte(`{"type":"live","meta":{"live":1,"source":[{"hrn":"HLS (TS)","type":"html5/application/vnd.apple.mpegurl","url":"https://cdn.test/hls/pb1/index.m3u8"}]}}`))
		case "/api/playback/empty":
			w.Write([]byte(`{"type":"live","meta":{"live":0,"source":[]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	info, err := c.PlaybackInfo(context.Background(), "pb1")
	if err != nil {
		t.Fatalf("PlaybackInfo failed: %v", err)
	}
	if !info.IsLive() || len(info.Meta.Source) != 1 {
		t.Errorf("unexpected info %+v", info)
	}

	for _, id := range []string{"missing", "empty", ""} {
		if _, err := c.PlaybackInfo(context.Background(), id); !errors.Is(err, ErrPlaybackFailed) {
			t.Errorf("PlaybackInfo(%q) = %v, want ErrPlaybackFailed", id, err)
		}
	}
}
