// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Podtech-AI/tabichan-go/internal/shared"
	"github.com/containerd/errdefs"
)

const (
	// DefaultBaseURL is the unary API endpoint of the hosted service.
	DefaultBaseURL = "https://tourism-api.podtech-ai.com/v1"
	// DefaultWebSocketBaseURL is the bidirectional endpoint of the hosted service.
	DefaultWebSocketBaseURL = "wss://tabichan.podtech-ai.com/v1"
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv = "TABICHAN_API_KEY"
)

// ErrMissingAPIKey is returned when no API key was passed or found in the environment.
var ErrMissingAPIKey = shared.NewClassError(
	"API key is not set. Please set the "+APIKeyEnv+" environment variable or pass it as an argument",
	errdefs.ErrInvalidArgument,
)

// Client holds configuration for the CLI and library callers.
type Client struct {
	APIKey           string
	BaseURL          string
	WebSocketBaseURL string
	UserID           string
	LogLevel         string
	Verbose          bool
}

// Sandbox holds configuration for the local sandbox server.
type Sandbox struct {
	Port        string
	DBPath      string
	FrontendURL string
	APIKeys     []string
	TaskDelay   time.Duration
	TaskTTL     time.Duration
	Question    string
}

// ResolveAPIKey returns key, or the value of TABICHAN_API_KEY when key is empty.
func ResolveAPIKey(key string) (string, error) {
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// LoadClient reads client configuration from environment variables.
func LoadClient() (*Client, error) {
	cfg := &Client{
		APIKey:           getEnv(APIKeyEnv, ""),
		BaseURL:          getEnv("TABICHAN_BASE_URL", DefaultBaseURL),
		WebSocketBaseURL: getEnv("TABICHAN_WS_BASE_URL", DefaultWebSocketBaseURL),
		UserID:           getEnv("TABICHAN_USER_ID", ""),
		LogLevel:         getEnv("TABICHAN_LOG_LEVEL", "info"),
		Verbose:          getEnvBool("TABICHAN_VERBOSE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Client) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.BaseURL == "" {
		return fmt.Errorf("TABICHAN_BASE_URL cannot be empty")
	}
	if c.WebSocketBaseURL == "" {
		return fmt.Errorf("TABICHAN_WS_BASE_URL cannot be empty")
	}
	return nil
}

// LoadSandbox reads sandbox server configuration from environment variables.
func LoadSandbox() (*Sandbox, error) {
	cfg := &Sandbox{
		Port:        getEnv("PORT", "8085"),
		DBPath:      getEnv("DB_PATH", "./data/sandbox.db"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		APIKeys:     getEnvList("SANDBOX_API_KEYS"),
		TaskDelay:   getEnvDuration("SANDBOX_TASK_DELAY", 15*time.Second),
		TaskTTL:     getEnvDuration("SANDBOX_TASK_TTL", time.Hour),
		Question:    getEnv("SANDBOX_QUESTION", "What is your budget for this trip?"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Sandbox) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("SANDBOX_API_KEYS must list at least one key")
	}
	if c.TaskDelay < 0 {
		return fmt.Errorf("SANDBOX_TASK_DELAY must be >= 0")
	}
	if c.TaskTTL <= 0 {
		return fmt.Errorf("SANDBOX_TASK_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Sandbox) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		// Bare integers are seconds.
		if n, convErr := strconv.Atoi(strings.TrimSpace(value)); convErr == nil {
			return time.Duration(n) * time.Second
		}
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
