package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/micro-ha/appdriver/internal/logging"
)

const maxErrorBody = 512

// HTTPExecutor sends commands to the automation server over its HTTP protocol.
// It is safe for concurrent use.
type HTTPExecutor struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	sleepFn    func(ctx context.Context, wait time.Duration) error

	mu          sync.RWMutex
	sessionID   string
	ownsSession bool
}

// NewHTTPExecutor validates cfg and builds an executor. When cfg.SessionID is
// empty, StartSession must be called before app commands are sent.
func NewHTTPExecutor(cfg Config) (*HTTPExecutor, error) {
	normalized, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &HTTPExecutor{
		config:     normalized,
		httpClient: httpClientForConfig(&http.Client{}, normalized),
		logger:     logging.Discard(),
		sleepFn:    sleepContext,
		sessionID:  normalized.SessionID,
	}, nil
}

// WithLogger replaces the executor logger.
func (e *HTTPExecutor) WithLogger(logger *slog.Logger) *HTTPExecutor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithHTTPClient replaces the underlying client, keeping the configured timeout
// and TLS policy when the given client leaves them unset.
func (e *HTTPExecutor) WithHTTPClient(client *http.Client) *HTTPExecutor {
	if client != nil {
		e.httpClient = httpClientForConfig(client, e.config)
	}
	return e
}

func (e *HTTPExecutor) SessionID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionID
}

// Execute performs one command round trip.
func (e *HTTPExecutor) Execute(ctx context.Context, cmd Command, args Arguments) (any, error) {
	if cmd.IsZero() {
		return nil, &ValidationError{Field: "command", Reason: "is unknown"}
	}
	sessionID := e.SessionID()
	if sessionID == "" && cmd != NewSession {
		return nil, fmt.Errorf("%s: %w", cmd, ErrSessionRequired)
	}

	endpoint := e.config.BaseURL + cmd.Endpoint(sessionID)
	var payload any
	if cmd.Method() != http.MethodGet && cmd.Method() != http.MethodDelete {
		payload = args
	}

	e.logger.Debug("automation request", "command", cmd.Name(), "method", cmd.Method(), "endpoint", endpoint)
	return e.executeWithRetry(ctx, cmd, endpoint, payload)
}

// StartSession creates a new automation session with the given capabilities and
// binds the executor to it.
func (e *HTTPExecutor) StartSession(ctx context.Context, capabilities map[string]any) (string, error) {
	if capabilities == nil {
		capabilities = map[string]any{}
	}
	args := PrepareArguments(
		[]string{"capabilities"},
		[]any{map[string]any{"alwaysMatch": capabilities, "firstMatch": []any{map[string]any{}}}},
	)
	value, err := e.Execute(ctx, NewSession, args)
	if err != nil {
		return "", err
	}

	sessionID := ""
	if body, ok := value.(map[string]any); ok {
		sessionID = strings.TrimSpace(str(body["sessionId"]))
	}
	if sessionID == "" {
		return "", &CommandError{Command: NewSession, Code: "session not created", Message: "response carries no sessionId"}
	}

	e.mu.Lock()
	e.sessionID = sessionID
	e.ownsSession = true
	e.mu.Unlock()
	e.logger.Info("automation session started", "session_id", sessionID)
	return sessionID, nil
}

// Close deletes the session if this executor created it.
func (e *HTTPExecutor) Close(ctx context.Context) error {
	e.mu.RLock()
	owns := e.ownsSession
	sessionID := e.sessionID
	e.mu.RUnlock()
	if !owns || sessionID == "" {
		return nil
	}

	if _, err := e.Execute(ctx, DeleteSession, Arguments{}); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}

	e.mu.Lock()
	e.sessionID = ""
	e.ownsSession = false
	e.mu.Unlock()
	e.logger.Info("automation session deleted", "session_id", sessionID)
	return nil
}

func (e *HTTPExecutor) executeWithRetry(ctx context.Context, cmd Command, endpoint string, payload any) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		value, err := e.doRequest(ctx, cmd, endpoint, payload)
		if err == nil {
			return value, nil
		}
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return nil, err
		}
		lastErr = err
		if !isRetryableError(err) || attempt == e.config.MaxAttempts {
			return nil, &TransportError{Command: cmd, Endpoint: endpoint, Attempts: attempt, Err: lastErr}
		}
		e.logger.Warn("automation request failed, retrying", "command", cmd.Name(), "attempt", attempt, "err", err)
		if sleepErr := e.sleepFn(ctx, time.Duration(attempt)*400*time.Millisecond); sleepErr != nil {
			return nil, &TransportError{Command: cmd, Endpoint: endpoint, Attempts: attempt, Err: sleepErr}
		}
	}
	return nil, &TransportError{Command: cmd, Endpoint: endpoint, Attempts: e.config.MaxAttempts, Err: lastErr}
}

func (e *HTTPExecutor) doRequest(ctx context.Context, cmd Command, endpoint string, payload any) (any, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", cmd, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, cmd.Method(), endpoint, body)
	if err != nil {
		return nil, err
	}
	if e.config.Username != "" {
		req.SetBasicAuth(e.config.Username, e.config.Password)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeResponse(cmd, resp.StatusCode, raw)
}

type responseEnvelope struct {
	Value any `json:"value"`
}

func decodeResponse(cmd Command, status int, raw []byte) (any, error) {
	var envelope responseEnvelope
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	decodeErr := decoder.Decode(&envelope)

	if status >= http.StatusBadRequest {
		cmdErr := &CommandError{Command: cmd, HTTPStatus: status, Code: "unknown error"}
		if decodeErr == nil {
			fillCommandError(cmdErr, envelope.Value)
		}
		if cmdErr.Message == "" {
			cmdErr.Message = truncate(strings.TrimSpace(string(raw)), maxErrorBody)
		}
		return nil, cmdErr
	}
	if decodeErr != nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("decode %s response: %w", cmd, decodeErr)
	}

	// Some servers report failures with a success status and an error body.
	if body, ok := envelope.Value.(map[string]any); ok {
		if code, ok := body["error"].(string); ok && code != "" {
			cmdErr := &CommandError{Command: cmd, HTTPStatus: status}
			fillCommandError(cmdErr, body)
			return nil, cmdErr
		}
	}
	return envelope.Value, nil
}

func fillCommandError(target *CommandError, value any) {
	body, ok := value.(map[string]any)
	if !ok {
		return
	}
	if code := strings.TrimSpace(str(body["error"])); code != "" {
		target.Code = code
	}
	target.Message = strings.TrimSpace(str(body["message"]))
	target.Stacktrace = str(body["stacktrace"])
}

func httpClientForConfig(base *http.Client, cfg Config) *http.Client {
	client := *base
	if !cfg.VerifyTLS && strings.HasPrefix(cfg.BaseURL, "https://") {
		var transport *http.Transport
		if existing, ok := client.Transport.(*http.Transport); ok {
			transport = existing.Clone()
		} else if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			transport = defaultTransport.Clone()
		} else {
			transport = &http.Transport{}
		}
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		client.Transport = transport
	}
	if client.Timeout <= 0 {
		client.Timeout = cfg.Timeout
	}
	return &client
}

func sleepContext(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	}
}

// truncate cuts value to at most limit bytes without splitting a rune.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	for limit > 0 && !utf8.RuneStart(value[limit]) {
		limit--
	}
	return value[:limit]
}
