package remote

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultServerPort  = "4723"
	defaultTimeout     = 10 * time.Minute
	defaultMaxAttempts = 1
	maxRetryAttempts   = 5
)

// Config defines one automation server connection profile.
type Config struct {
	// BaseURL points at the server root, for example http://127.0.0.1:4723.
	// A path prefix such as /wd/hub is kept.
	BaseURL   string
	SessionID string
	Username  string
	Password  string
	VerifyTLS bool
	// Timeout bounds one HTTP round trip. Background runs block for their whole
	// duration, so keep it above the longest expected interval.
	Timeout     time.Duration
	MaxAttempts int
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.SessionID = strings.TrimSpace(cfg.SessionID)
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxAttempts > maxRetryAttempts {
		cfg.MaxAttempts = maxRetryAttempts
	}
	if cfg.Username == "" && cfg.Password != "" {
		return Config{}, &ValidationError{Field: "username", Reason: "is required when password is set"}
	}

	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return Config{}, err
	}
	cfg.BaseURL = base
	return cfg, nil
}

func normalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", &ValidationError{Field: "base_url", Reason: "is required"}
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return "", &ValidationError{Field: "base_url", Reason: fmt.Sprintf("invalid value: %v", err)}
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return "", &ValidationError{Field: "base_url", Reason: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}

	host := strings.TrimSpace(parsed.Host)
	if host == "" {
		return "", &ValidationError{Field: "base_url", Reason: "host is empty"}
	}
	host, err = withDefaultPort(host)
	if err != nil {
		return "", err
	}

	path := strings.TrimSuffix(strings.TrimSpace(parsed.Path), "/")
	return parsed.Scheme + "://" + host + path, nil
}

func withDefaultPort(host string) (string, error) {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	}
	if strings.TrimSpace(host) == "" {
		return "", &ValidationError{Field: "base_url", Reason: "host is empty"}
	}

	return net.JoinHostPort(host, defaultServerPort), nil
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &ValidationError{Field: "ws_url", Reason: fmt.Sprintf("invalid value: %v", err)}
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", &ValidationError{Field: "ws_url", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &ValidationError{Field: "ws_url", Reason: "host is empty"}
	}
	return u.String(), nil
}
