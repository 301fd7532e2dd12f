package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement/payload"
)

type installRequest struct {
	AppPath string           `json:"app_path"`
	Options *payload.Options `json:"options,omitempty"`
}

type backgroundRequest struct {
	Duration string `json:"duration"`
}

type optionsRequest struct {
	Options *payload.Options `json:"options,omitempty"`
}

// InstallApp installs the package at app_path on the device.
func (a *API) InstallApp(w http.ResponseWriter, r *http.Request) {
	var body installRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	appPath := strings.TrimSpace(body.AppPath)
	if appPath == "" {
		writeError(w, http.StatusBadRequest, "invalid_app_path", "app_path is required")
		return
	}

	var err error
	if body.Options == nil {
		err = a.apps.InstallApp(r.Context(), appPath)
	} else {
		opts, optsErr := body.Options.InstallOptions()
		if optsErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_options", optsErr.Error())
			return
		}
		err = a.apps.InstallAppWithOptions(r.Context(), appPath, opts)
	}
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// IsAppInstalled reports whether bundleID is installed.
func (a *API) IsAppInstalled(w http.ResponseWriter, r *http.Request, bundleID string) {
	bundleID, ok := requireBundleID(w, bundleID)
	if !ok {
		return
	}
	installed, err := a.apps.IsAppInstalled(r.Context(), bundleID)
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundle_id": bundleID, "installed": installed})
}

// RunAppInBackground sends the foreground app to the background for duration.
// The request blocks until the driver returns.
func (a *API) RunAppInBackground(w http.ResponseWriter, r *http.Request) {
	var body backgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	duration, err := time.ParseDuration(strings.TrimSpace(body.Duration))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a Go duration such as 1500ms")
		return
	}
	if err := a.apps.RunAppInBackground(r.Context(), duration); err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// RemoveApp uninstalls bundleID.
func (a *API) RemoveApp(w http.ResponseWriter, r *http.Request, bundleID string) {
	bundleID, ok := requireBundleID(w, bundleID)
	if !ok {
		return
	}
	body, ok := decodeOptionalBody(w, r)
	if !ok {
		return
	}

	var (
		removed bool
		err     error
	)
	if body.Options == nil {
		removed, err = a.apps.RemoveApp(r.Context(), bundleID)
	} else {
		opts, optsErr := body.Options.RemoveOptions()
		if optsErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_options", optsErr.Error())
			return
		}
		removed, err = a.apps.RemoveAppWithOptions(r.Context(), bundleID, opts)
	}
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundle_id": bundleID, "removed": removed})
}

// ActivateApp launches bundleID or brings it to the foreground.
func (a *API) ActivateApp(w http.ResponseWriter, r *http.Request, bundleID string) {
	bundleID, ok := requireBundleID(w, bundleID)
	if !ok {
		return
	}
	body, ok := decodeOptionalBody(w, r)
	if !ok {
		return
	}

	var err error
	if body.Options == nil {
		err = a.apps.ActivateApp(r.Context(), bundleID)
	} else {
		opts, optsErr := body.Options.ActivateOptions()
		if optsErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_options", optsErr.Error())
			return
		}
		err = a.apps.ActivateAppWithOptions(r.Context(), bundleID, opts)
	}
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// QueryAppState returns the lifecycle state of bundleID.
func (a *API) QueryAppState(w http.ResponseWriter, r *http.Request, bundleID string) {
	bundleID, ok := requireBundleID(w, bundleID)
	if !ok {
		return
	}
	state, err := a.apps.QueryAppState(r.Context(), bundleID)
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundle_id": bundleID, "state": state, "code": state.Code()})
}

// TerminateApp stops bundleID.
func (a *API) TerminateApp(w http.ResponseWriter, r *http.Request, bundleID string) {
	bundleID, ok := requireBundleID(w, bundleID)
	if !ok {
		return
	}
	body, ok := decodeOptionalBody(w, r)
	if !ok {
		return
	}

	var (
		terminated bool
		err        error
	)
	if body.Options == nil {
		terminated, err = a.apps.TerminateApp(r.Context(), bundleID)
	} else {
		opts, optsErr := body.Options.TerminateOptions()
		if optsErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_options", optsErr.Error())
			return
		}
		terminated, err = a.apps.TerminateAppWithOptions(r.Context(), bundleID, opts)
	}
	if err != nil {
		a.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundle_id": bundleID, "terminated": terminated})
}

func requireBundleID(w http.ResponseWriter, raw string) (string, bool) {
	bundleID := strings.TrimSpace(raw)
	if bundleID == "" {
		writeError(w, http.StatusBadRequest, "invalid_bundle_id", "bundle id is required")
		return "", false
	}
	return bundleID, true
}

// decodeOptionalBody accepts an empty body as a request without options.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request) (optionsRequest, bool) {
	var body optionsRequest
	if r.Body == nil {
		return body, true
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return optionsRequest{}, false
	}
	return body, true
}
