// Package config provides typed configuration loading for the SolStream server.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for the SolStream server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Redis      RedisConfig      `yaml:"redis"`
	Solana     SolanaConfig     `yaml:"solana"`
	Video      VideoConfig      `yaml:"video"`
	Moderation ModerationConfig `yaml:"moderation"`
	Media      MediaConfig      `yaml:"media"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// ServerConfig contains HTTP/WebSocket server settings.
type ServerConfig struct {
	Listen           string   `yaml:"listen"`
	UseXForwardedFor bool     `yaml:"use_x_forwarded_for"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	// Timeouts in seconds
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	IdleTimeout     int `yaml:"idle_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Name            string `yaml:"name"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	SQLTimeout      int    `yaml:"sql_timeout"`
	// Base64 AES key for stream keys at rest
	EncryptionKey string `yaml:"encryption_key"`
}

// DSN returns a PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.SQLTimeout,
	)
}

// AuthConfig contains wallet authentication settings.
type AuthConfig struct {
	Token     TokenAuthConfig `yaml:"token"`
	Challenge ChallengeConfig `yaml:"challenge"`
}

// TokenAuthConfig contains session token settings.
type TokenAuthConfig struct {
	Key      string `yaml:"key"`
	ExpireIn int    `yaml:"expire_in"`
}

// ChallengeConfig controls the sign-in challenges handed to wallets.
type ChallengeConfig struct {
	// Seconds a nonce stays valid
	TTL int `yaml:"ttl"`
}

// RedisConfig contains the optional Redis connection settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	NodeID   string `yaml:"node_id"`
}

// SolanaConfig points at the public JSON-RPC endpoint used for balances.
type SolanaConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	Commitment  string `yaml:"commitment"`
	Timeout     int    `yaml:"timeout"`
}

// VideoConfig contains the video API credentials.
type VideoConfig struct {
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	CDNURL  string `yaml:"cdn_url"`
	Timeout int    `yaml:"timeout"`
}

// ModerationConfig controls automated stream moderation.
type ModerationConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Interval  int     `yaml:"interval"`
	Threshold float64 `yaml:"threshold"`
}

// MediaConfig contains stream thumbnail settings.
type MediaConfig struct {
	MaxSize     int64  `yaml:"max_size"`
	UploadDir   string `yaml:"upload_dir"`
	ThumbWidth  int    `yaml:"thumb_width"`
	ThumbHeight int    `yaml:"thumb_height"`
}

// LimitsConfig contains various size and rate limits.
type LimitsConfig struct {
	MaxChatLength       int `yaml:"max_chat_length"`
	MaxDonationMessage  int `yaml:"max_donation_message"`
	ChatPerMinute       int `yaml:"chat_per_minute"`
	ChallengesPerMinute int `yaml:"challenges_per_minute"`
	ChatHistory         int `yaml:"chat_history"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML config content, expanding environment variables first.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands ${VAR} and ${VAR:default} patterns in the config.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		envVar := parts[1]
		defaultVal := ""
		if len(parts) > 2 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(envVar); val != "" {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":6060"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Name == "" {
		c.Database.Name = "solstream"
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 60
	}
	if c.Database.SQLTimeout == 0 {
		c.Database.SQLTimeout = 10
	}

	if c.Auth.Token.ExpireIn == 0 {
		c.Auth.Token.ExpireIn = 1209600 // 2 weeks
	}
	if c.Auth.Challenge.TTL == 0 {
		c.Auth.Challenge.TTL = 300
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.NodeID == "" {
		if host, err := os.Hostname(); err == nil {
			c.Redis.NodeID = host
		} else {
			c.Redis.NodeID = "solstream"
		}
	}

	if c.Solana.RPCEndpoint == "" {
		c.Solana.RPCEndpoint = "https://api.mainnet-beta.solana.com"
	}
	if c.Solana.Commitment == "" {
		c.Solana.Commitment = "finalized"
	}
	if c.Solana.Timeout == 0 {
		c.Solana.Timeout = 10
	}

	if c.Video.APIURL == "" {
		c.Video.APIURL = "https://livepeer.studio/api"
	}
	if c.Video.CDNURL == "" {
		c.Video.CDNURL = "https://livepeercdn.com"
	}
	if c.Video.Timeout == 0 {
		c.Video.Timeout = 15
	}

	if c.Moderation.Interval == 0 {
		c.Moderation.Interval = 5
	}
	if c.Moderation.Threshold == 0 {
		c.Moderation.Threshold = 0.85
	}

	if c.Media.MaxSize == 0 {
		c.Media.MaxSize = 8388608 // 8MB
	}
	if c.Media.UploadDir == "" {
		c.Media.UploadDir = "./uploads"
	}
	if c.Media.ThumbWidth == 0 {
		c.Media.ThumbWidth = 640
	}
	if c.Media.ThumbHeight == 0 {
		c.Media.ThumbHeight = 360
	}

	if c.Limits.MaxChatLength == 0 {
		c.Limits.MaxChatLength = 500
	}
	if c.Limits.MaxDonationMessage == 0 {
		c.Limits.MaxDonationMessage = 200
	}
	if c.Limits.ChatPerMinute == 0 {
		c.Limits.ChatPerMinute = 20
	}
	if c.Limits.ChallengesPerMinute == 0 {
		c.Limits.ChallengesPerMinute = 10
	}
	if c.Limits.ChatHistory == 0 {
		c.Limits.ChatHistory = 50
	}
}

// validate checks that required fields are set.
func (c *Config) validate() error {
	if c.Auth.Token.Key == "" {
		return fmt.Errorf("auth.token.key is required")
	}
	if c.Database.EncryptionKey == "" {
		return fmt.Errorf("database.encryption_key is required")
	}
	if c.Video.APIKey == "" {
		return fmt.Errorf("video.api_key is required")
	}
	if c.Moderation.Threshold < 0 || c.Moderation.Threshold > 1 {
		return fmt.Errorf("moderation.threshold must be between 0 and 1")
	}
	return nil
}
