package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Download  DownloadConfig  `yaml:"download"`
	TikTok    TikTokConfig    `yaml:"tiktok"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port              int           `yaml:"port" envconfig:"PORT" default:"3001"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"SERVER_READ_HEADER_TIMEOUT" default:"10s"`
	// ReadTimeout and WriteTimeout are lifted on the streaming upload routes.
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"10m"`
	// PublicHost overrides the request Host when building public video URLs.
	PublicHost string `yaml:"public_host" envconfig:"PUBLIC_HOST"`
	DistDir    string `yaml:"dist_dir" envconfig:"DIST_DIR" default:"dist"`
}

// StorageConfig holds upload storage configuration.
type StorageConfig struct {
	UploadDir     string `yaml:"upload_dir" envconfig:"UPLOAD_DIR" default:"upload"`
	MaxUploadSize int64  `yaml:"max_upload_size" envconfig:"MAX_UPLOAD_SIZE" default:"1073741824"` // 1GB
}

// DownloadConfig holds remote video fetch configuration.
type DownloadConfig struct {
	UserAgent string `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
	// HeaderTimeout bounds the wait for response headers. Zero disables it.
	HeaderTimeout time.Duration `yaml:"header_timeout" envconfig:"DOWNLOAD_HEADER_TIMEOUT" default:"0s"`
}

// TikTokConfig holds TikTok API configuration.
type TikTokConfig struct {
	ClientKey    string        `yaml:"client_key" envconfig:"TIKTOK_CLIENT_KEY"`
	ClientSecret string        `yaml:"client_secret" envconfig:"TIKTOK_CLIENT_SECRET"`
	RedirectURI  string        `yaml:"redirect_uri" envconfig:"TIKTOK_REDIRECT_URI"`
	BaseURL      string        `yaml:"base_url" envconfig:"TIKTOK_BASE_URL" default:"https://open.tiktokapis.com"`
	AuthURL      string        `yaml:"auth_url" envconfig:"TIKTOK_AUTH_URL" default:"https://www.tiktok.com/v2/auth/authorize/"`
	Scopes       []string      `yaml:"scopes" envconfig:"TIKTOK_SCOPES" default:"user.info.basic,video.publish,video.upload"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIKTOK_TIMEOUT" default:"30s"`
	PostTitle    string        `yaml:"post_title" envconfig:"TIKTOK_POST_TITLE" default:"Test Video from AutoTok"`
	PrivacyLevel string        `yaml:"privacy_level" envconfig:"TIKTOK_PRIVACY_LEVEL" default:"SELF_ONLY"`
}

// GeminiConfig holds generative text API configuration.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"60s"`
	// EnvFile is parsed by hand for a key when the environment has none.
	EnvFile string `yaml:"env_file" envconfig:"GEMINI_ENV_FILE" default:".env"`
}

// AccountsConfig selects where connected accounts are persisted.
type AccountsConfig struct {
	Backend string `yaml:"backend" envconfig:"ACCOUNTS_BACKEND" default:"file"`
	Path    string `yaml:"path" envconfig:"ACCOUNTS_PATH" default:"data/accounts.json"`
	// Passphrase seals the file backend at rest when set.
	Passphrase string `yaml:"passphrase" envconfig:"ACCOUNTS_PASSPHRASE"`
}

// SessionConfig holds the cookie session used by the OAuth connect flow.
type SessionConfig struct {
	Secret string        `yaml:"secret" envconfig:"SESSION_SECRET"`
	MaxAge time.Duration `yaml:"max_age" envconfig:"SESSION_MAX_AGE" default:"10m"`
}

// RateLimitConfig holds per-IP limits for the expensive endpoints.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	Window   time.Duration `yaml:"window" envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	Burst    int           `yaml:"burst" envconfig:"RATE_LIMIT_BURST" default:"10"`
}

const (
	AccountsBackendFile   = "file"
	AccountsBackendSQLite = "sqlite"
)

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = ResolveGeminiKey(cfg.Gemini.EnvFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Server.Port)
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	switch c.Accounts.Backend {
	case AccountsBackendFile, AccountsBackendSQLite:
	default:
		return fmt.Errorf("ACCOUNTS_BACKEND %q is not one of file, sqlite", c.Accounts.Backend)
	}
	if c.Accounts.Path == "" {
		return fmt.Errorf("ACCOUNTS_PATH is required")
	}
	if c.Accounts.Backend == AccountsBackendSQLite && c.Accounts.Passphrase != "" {
		return fmt.Errorf("ACCOUNTS_PASSPHRASE is only supported with the file backend")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// geminiKeyNames are checked in order, in the environment and then the env file.
var geminiKeyNames = []string{"GEMINI_API_KEY", "VITE_GEMINI_API_KEY"}

// ResolveGeminiKey finds the generative API key in the environment, falling back
// to a KEY=value parse of envFile. Returns "" when nothing resolves.
func ResolveGeminiKey(envFile string) string {
	for _, name := range geminiKeyNames {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	if envFile == "" {
		return ""
	}
	values, err := parseEnvFile(envFile)
	if err != nil {
		return ""
	}
	for _, name := range geminiKeyNames {
		if v := values[name]; v != "" {
			return v
		}
	}
	return ""
}

// parseEnvFile reads simple KEY=value lines. Comments, blank lines and an
// optional "export " prefix are skipped; surrounding quotes are stripped.
func parseEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, scanner.Err()
}
