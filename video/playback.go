package video

import (
	"regexp"
	"strings"
)

// FallbackPlaybackID is served when a record's URL carries no usable id, so
// the viewer page always has something to hand the player.
const FallbackPlaybackID = "6d7el73r1y12chxr"

var playbackIDPattern = regexp.MustCompile(`hls/(.*?)/index\.m3u8`)

// PlaybackURL builds <cdn>/hls/<id>/index.m3u8.
func PlaybackURL(cdnBase, playbackID string) string {
	return strings.TrimRight(cdnBase, "/") + "/hls/" + playbackID + "/index.m3u8"
}

// ExtractPlaybackID pulls the id out of an HLS manifest URL. The first match
// wins; URLs without one yield FallbackPlaybackID.
func ExtractPlaybackID(playbackURL string) string {
	m := playbackIDPattern.FindStringSubmatch(playbackURL)
	if m == nil || m[1] == "" {
		return FallbackPlaybackID
	}
	return m[1]
}
