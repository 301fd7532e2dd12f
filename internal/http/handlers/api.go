package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/micro-ha/appdriver/internal/apps"
	"github.com/micro-ha/appdriver/internal/journal"
	"github.com/micro-ha/appdriver/internal/remote"
)

// JournalReader lists recorded commands. *journal.Repository implements it.
type JournalReader interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
	ListByCommand(ctx context.Context, cmd remote.Command, limit int) ([]journal.Entry, error)
}

// API groups HTTP handlers and dependencies.
type API struct {
	apps    apps.Service
	journal JournalReader
	logger  *slog.Logger
}

// New creates HTTP handlers. journal may be nil when persistence is disabled.
func New(appService apps.Service, journalReader JournalReader, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{apps: appService, journal: journalReader, logger: logger}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Health reports service liveness.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "journal": a.journal != nil})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// writeCommandError maps a facade error onto a response.
func (a *API) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *remote.ValidationError
		cmdErr        *remote.CommandError
		transportErr  *remote.TransportError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "invalid_argument", validationErr.Error())
	case errors.Is(err, remote.ErrSessionRequired):
		writeError(w, http.StatusServiceUnavailable, "session_required", err.Error())
	case errors.Is(err, apps.ErrDecode):
		a.logger.Warn("undecodable automation result", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "decode_failed", err.Error())
	case errors.As(err, &cmdErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": map[string]any{
				"code":        "remote_command_failed",
				"message":     cmdErr.Error(),
				"remote_code": cmdErr.Code,
			},
		})
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, "transport_failed", transportErr.Error())
	default:
		a.logger.Error("command failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
