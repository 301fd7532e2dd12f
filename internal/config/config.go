package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-ha/appdriver/internal/remote"
)

const (
	defaultHTTPAddr         = ":8099"
	defaultAutomationURL    = "http://127.0.0.1:4723"
	defaultJournalPath      = "/data/appdriver.db"
	defaultRequestTimeout   = 10 * time.Minute
	defaultJournalRetention = 30 * 24 * time.Hour
	defaultMaxAttempts      = 1

	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Config stores runtime settings loaded from environment variables.
type Config struct {
	HTTPAddr         string
	AutomationURL    string
	WebSocketURL     string
	Transport        string
	SessionID        string
	CapabilitiesFile string
	Capabilities     map[string]any
	Username         string
	Password         string
	VerifyTLS        bool
	RequestTimeout   time.Duration
	MaxAttempts      int
	JournalPath      string
	JournalRetention time.Duration
	LogLevel         slog.Level
}

// Load builds Config from environment variables using stable defaults.
// Only unreadable capabilities or an unknown transport are errors.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:         getenv("HTTP_ADDR", defaultHTTPAddr),
		AutomationURL:    getenv("AUTOMATION_URL", defaultAutomationURL),
		WebSocketURL:     getenv("AUTOMATION_WS_URL", ""),
		Transport:        strings.ToLower(getenv("AUTOMATION_TRANSPORT", TransportHTTP)),
		SessionID:        getenv("AUTOMATION_SESSION_ID", ""),
		CapabilitiesFile: getenv("AUTOMATION_CAPABILITIES_FILE", ""),
		Username:         getenv("AUTOMATION_USERNAME", ""),
		Password:         os.Getenv("AUTOMATION_PASSWORD"),
		VerifyTLS:        parseBool("AUTOMATION_VERIFY_TLS", true),
		RequestTimeout:   parseDuration("REQUEST_TIMEOUT", defaultRequestTimeout),
		MaxAttempts:      parseInt("TRANSPORT_MAX_ATTEMPTS", defaultMaxAttempts),
		JournalPath:      lookupOptional("JOURNAL_PATH", defaultJournalPath),
		JournalRetention: parseDuration("JOURNAL_RETENTION", defaultJournalRetention),
		LogLevel:         parseLogLevel(getenv("LOG_LEVEL", "info")),
	}

	switch cfg.Transport {
	case TransportHTTP, TransportWebSocket:
	default:
		return Config{}, fmt.Errorf("AUTOMATION_TRANSPORT: unsupported value %q", cfg.Transport)
	}

	capabilities, err := loadCapabilities(cfg.CapabilitiesFile, getenv("AUTOMATION_CAPABILITIES", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Capabilities = capabilities
	return cfg, nil
}

// loadCapabilities reads the YAML (or JSON) capabilities file and overlays the
// inline JSON object on top of it, key by key.
func loadCapabilities(path string, inline string) (map[string]any, error) {
	var capabilities map[string]any
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("AUTOMATION_CAPABILITIES_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &capabilities); err != nil {
			return nil, fmt.Errorf("AUTOMATION_CAPABILITIES_FILE: parsing %s: %w", path, err)
		}
	}
	if inline != "" {
		var overlay map[string]any
		if err := json.Unmarshal([]byte(inline), &overlay); err != nil {
			return nil, fmt.Errorf("AUTOMATION_CAPABILITIES: %w", err)
		}
		if capabilities == nil {
			capabilities = make(map[string]any, len(overlay))
		}
		for key, value := range overlay {
			capabilities[key] = value
		}
	}
	return capabilities, nil
}

// Remote returns the executor connection profile.
func (c Config) Remote() remote.Config {
	return remote.Config{
		BaseURL:     c.AutomationURL,
		SessionID:   c.SessionID,
		Username:    c.Username,
		Password:    c.Password,
		VerifyTLS:   c.VerifyTLS,
		Timeout:     c.RequestTimeout,
		MaxAttempts: c.MaxAttempts,
	}
}

// JournalEnabled reports whether commands are persisted.
func (c Config) JournalEnabled() bool {
	return c.JournalPath != ""
}

// JournalDir returns the target directory for JournalPath.
func (c Config) JournalDir() string {
	return filepath.Dir(c.JournalPath)
}

// WebSocketEndpoint returns AUTOMATION_WS_URL, falling back to AUTOMATION_URL.
func (c Config) WebSocketEndpoint() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	return c.AutomationURL
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

// lookupOptional is getenv where an explicitly empty value means "disabled".
func lookupOptional(key string, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(value)
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
