// Package video talks to the hosted video API that ingests, transcodes and
// serves streams. SolStream never touches media bytes itself.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrBackend covers transport failures and non-2xx answers.
	ErrBackend = errors.New("video backend error")
	// ErrPlaybackFailed means the playback id is unknown or not playable.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrInvalidResponse means a 2xx body did not match the expected schema.
	ErrInvalidResponse = errors.New("invalid video api response")
)

// Config holds video API settings.
type Config struct {
	BaseURL string // e.g. https://livepeer.studio/api
	APIKey  string
	CDNURL  string // HLS host, e.g. https://livepeercdn.com
	Timeout time.Duration
}

// Client is a video API client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Client. A nil httpClient gets one with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{config: cfg, httpClient: httpClient}
}

// Stream is what the video API hands back for a newly created stream.
type Stream struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StreamKey  string `json:"streamKey"`
	PlaybackID string `json:"playbackId"`
}

// CreateStream registers a new ingest endpoint. With record set the API
// keeps a VOD copy of the session.
func (c *Client) CreateStream(ctx context.Context, name string, record bool) (*Stream, error) {
	body := map[string]any{"name": name, "record": record}

	var s Stream
	if err := c.do(ctx, http.MethodPost, "/stream", body, &s); err != nil {
		return nil, err
	}
	if s.ID == "" || s.StreamKey == "" || s.PlaybackID == "" {
		return nil, fmt.Errorf("%w: stream missing id, key or playback id", ErrInvalidResponse)
	}
	return &s, nil
}

// PlaybackSource is one rendition the player can load.
type PlaybackSource struct {
	HRN  string `json:"hrn"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// PlaybackMeta describes the state of a playback id.
type PlaybackMeta struct {
	Live   int              `json:"live"`
	Source []PlaybackSource `json:"source"`
}

// PlaybackInfo is the API's answer for a playback id.
type PlaybackInfo struct {
	Type string       `json:"type"`
	Meta PlaybackMeta `json:"meta"`
}

// IsLive reports whether the stream is currently broadcasting.
func (p *PlaybackInfo) IsLive() bool {
	return p.Meta.Live == 1
}

// PlaybackInfo fetches the playback sources for a playback id.
func (c *Client) PlaybackInfo(ctx context.Context, playbackID string) (*PlaybackInfo, error) {
	if playbackID == "" {
		return nil, ErrPlaybackFailed
	}

	var info PlaybackInfo
	err := c.do(ctx, http.MethodGet, "/playback/"+url.PathEscape(playbackID), nil, &info)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrPlaybackFailed, playbackID)
		}
		return nil, err
	}
	if info.Type == "" || len(info.Meta.Source) == 0 {
		return nil, fmt.Errorf("%w: no playback sources", ErrPlaybackFailed)
	}
	return &info, nil
}

// PlaybackURL returns the HLS manifest URL on the configured CDN.
func (c *Client) PlaybackURL(playbackID string) string {
	return PlaybackURL(c.config.CDNURL, playbackID)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("video api returned %d: %s", e.code, e.body)
}

func (e *statusError) Unwrap() error {
	return ErrBackend
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
