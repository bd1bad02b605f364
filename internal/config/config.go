// Package config loads service configuration from defaults, an optional
// .env file, and CHATLENS_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Insight InsightConfig
}

type ServerConfig struct {
	Port     int
	MCPPort  int
	PageSize int
}

type StorageConfig struct {
	DataDir     string
	DatabaseURL string
}

type InsightConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4600,
			MCPPort:  4601,
			PageSize: 50,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Insight: InsightConfig{
			Timeout: 30 * time.Second,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatlens"
	}
	return filepath.Join(home, ".chatlens")
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present; explicit environment variables always win.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars take precedence anyway.
	_ = godotenv.Load()

	cfg := defaults()

	var err error
	if cfg.Server.Port, err = intEnv("CHATLENS_PORT", cfg.Server.Port); err != nil {
		return Config{}, err
	}
	if cfg.Server.MCPPort, err = intEnv("CHATLENS_MCP_PORT", cfg.Server.MCPPort); err != nil {
		return Config{}, err
	}
	if cfg.Server.PageSize, err = intEnv("CHATLENS_PAGE_SIZE", cfg.Server.PageSize); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("CHATLENS_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	cfg.Storage.DatabaseURL = firstEnv("CHATLENS_DATABASE_URL", "DATABASE_URL")

	cfg.Insight.APIKey = firstEnv("CHATLENS_OPENAI_API_KEY", "OPENAI_API_KEY")
	cfg.Insight.BaseURL = os.Getenv("CHATLENS_LLM_BASE_URL")
	cfg.Insight.Model = os.Getenv("CHATLENS_LLM_MODEL")
	if v := os.Getenv("CHATLENS_LLM_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid CHATLENS_LLM_TIMEOUT_SECONDS: %q", v)
		}
		cfg.Insight.Timeout = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// KV is a flattened configuration entry for display.
type KV struct {
	Key   string
	Value string
}

// ShowAll flattens the configuration for display. Secrets and DSN
// passwords are masked.
func ShowAll(cfg Config) []KV {
	return []KV{
		{"server.port", strconv.Itoa(cfg.Server.Port)},
		{"server.mcp_port", strconv.Itoa(cfg.Server.MCPPort)},
		{"server.page_size", strconv.Itoa(cfg.Server.PageSize)},
		{"storage.data_dir", cfg.Storage.DataDir},
		{"storage.database_url", maskDSN(cfg.Storage.DatabaseURL)},
		{"insight.api_key", maskSecret(cfg.Insight.APIKey)},
		{"insight.base_url", orDefault(cfg.Insight.BaseURL, "https://api.openai.com/v1")},
		{"insight.model", orDefault(cfg.Insight.Model, "gpt-3.5-turbo")},
		{"insight.timeout", cfg.Insight.Timeout.String()},
	}
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "(local sqlite)"
	}
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsn
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

const tokenFileName = "api_token"

// LoadOrCreateToken returns the persisted API bearer token, generating and
// saving a new one on first use. CHATLENS_API_TOKEN overrides the file.
func LoadOrCreateToken(dataDir string) (string, error) {
	if v := os.Getenv("CHATLENS_API_TOKEN"); v != "" {
		return v, nil
	}

	path := filepath.Join(dataDir, tokenFileName)
	if b, err := os.ReadFile(path); err == nil {
		token := strings.TrimSpace(string(b))
		if token != "" {
			return token, nil
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing token file: %w", err)
	}
	return token, nil
}
