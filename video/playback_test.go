package video

import "testing"

func TestPlaybackURL(t *testing.T) {
	tests := []struct {
		cdn, id, want string
	}{
		{"https://livepeercdn.com", "abc123", "https://livepeercdn.com/hls/abc123/index.m3u8"},
		{"https://livepeercdn.com/", "abc123", "https://livepeercdn.com/hls/abc123/index.m3u8"},
	}
	for _, tt := range tests {
		if got := PlaybackURL(tt.cdn, tt.id); got != tt.want {
			t.Errorf("PlaybackURL(%q, %q) = %q, want %q", tt.cdn, tt.id, got, tt.want)
		}
	}
}

func TestExtractPlaybackID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"cdn url", "https://livepeercdn.com/hls/abc123/index.m3u8", "abc123"},
		{"relative", "hls/xyz/index.m3u8", "xyz"},
		{"first match wins", "https://cdn/hls/one/index.m3u8?next=hls/two/index.m3u8", "one"},
		{"empty", "", FallbackPlaybackID},
		{"no match", "https://example.com/video.mp4", FallbackPlaybackID},
		{"empty id", "https://livepeercdn.com/hls//index.m3u8", FallbackPlaybackID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPlaybackID(tt.url); got != tt.want {
				t.Errorf("ExtractPlaybackID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractPlaybackID_RoundTrip(t *testing.T) {
	for _, id := range []string{"abc123", "6d7el73r1y12chxr", "a-b_c"} {
		if got := ExtractPlaybackID(PlaybackURL("https://livepeercdn.com", id)); got != id {
			t.Errorf("round trip of %q gave %q", id, got)
		}
	}
}
