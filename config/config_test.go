package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_RejectsMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "empty token key",
			cfg: Config{
				Database: DatabaseConfig{EncryptionKey: "x"},
				Video:    VideoConfig{APIKey: "x"},
			},
			wantErr: "auth.token.key is required",
		},
		{
			name: "empty encryption_key",
			cfg: Config{
				Auth:  AuthConfig{Token: TokenAuthConfig{Key: "x"}},
				Video: VideoConfig{APIKey: "x"},
			},
			wantErr: "database.encryption_key is required",
		},
		{
			name: "empty video api key",
			cfg: Config{
				Auth:     AuthConfig{Token: TokenAuthConfig{Key: "x"}},
				Database: DatabaseConfig{EncryptionKey: "x"},
			},
			wantErr: "video.api_key is required",
		},
		{
			name: "threshold out of range",
			cfg: Config{
				Auth:       AuthConfig{Token: TokenAuthConfig{Key: "x"}},
				Database:   DatabaseConfig{EncryptionKey: "x"},
				Video:      VideoConfig{APIKey: "x"},
				Moderation: ModerationConfig{Threshold: 1.5},
			},
			wantErr: "moderation.threshold must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Server.Listen != ":6060" {
		t.Errorf("expected listen :6060, got %s", cfg.Server.Listen)
	}
	if cfg.Solana.RPCEndpoint != "https://api.mainnet-beta.solana.com" {
		t.Errorf("unexpected rpc endpoint %s", cfg.Solana.RPCEndpoint)
	}
	if cfg.Auth.Challenge.TTL != 300 {
		t.Errorf("expected challenge ttl 300, got %d", cfg.Auth.Challenge.TTL)
	}
	if cfg.Moderation.Interval != 5 {
		t.Errorf("expected moderation interval 5, got %d", cfg.Moderation.Interval)
	}
	if cfg.Moderation.Threshold != 0.85 {
		t.Errorf("expected moderation threshold 0.85, got %v", cfg.Moderation.Threshold)
	}
	if cfg.Video.CDNURL != "https://livepeercdn.com" {
		t.Errorf("unexpected cdn url %s", cfg.Video.CDNURL)
	}
	if cfg.Limits.MaxChatLength != 500 {
		t.Errorf("expected chat length 500, got %d", cfg.Limits.MaxChatLength)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SOLSTREAM_TEST_KEY", "from-env")

	got := expandEnvVars("a: ${SOLSTREAM_TEST_KEY}\nb: ${SOLSTREAM_UNSET_VAR:fallback}\nc: ${SOLSTREAM_UNSET_VAR}")
	want := "a: from-env\nb: fallback\nc: "
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("SOLSTREAM_VIDEO_KEY", "video-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "solstream.yaml")
	content := `
server:
  listen: ":8080"
auth:
  token:
    key: dG9rZW4ta2V5
database:
  encryption_key: ZW5jcnlwdGlvbi1rZXk=
video:
  api_key: ${SOLSTREAM_VIDEO_KEY}
redis:
  enabled: true
  node_id: node-1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("expected listen :8080, got %s", cfg.Server.Listen)
	}
	if cfg.Video.APIKey != "video-key" {
		t.Errorf("expected api key from env, got %q", cfg.Video.APIKey)
	}
	if !cfg.Redis.Enabled || cfg.Redis.NodeID != "node-1" {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", cfg.Database.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
