package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/micro-ha/appdriver/internal/journal"
	"github.com/micro-ha/appdriver/internal/remote"
)

// ListJournal returns recently executed commands, newest first. The optional
// command query parameter takes a command name such as queryAppState.
func (a *API) ListJournal(w http.ResponseWriter, r *http.Request) {
	if a.journal == nil {
		writeError(w, http.StatusNotFound, "journal_disabled", "Command journal is disabled")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = value
	}

	var (
		items []journal.Entry
		err   error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("command")); raw != "" {
		cmd, ok := remote.CommandByName(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_command", "unknown command "+strconv.Quote(raw))
			return
		}
		items, err = a.journal.ListByCommand(r.Context(), cmd, limit)
	} else {
		items, err = a.journal.List(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
