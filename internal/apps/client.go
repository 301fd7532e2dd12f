// Package apps manages the lifecycle of applications on the device under test.
//
// Every operation is one remote command: the fixed parameters and optional
// platform options are normalized into an argument mapping, sent through a
// remote.Executor, and the result is decoded into a typed value. Errors from the
// executor are returned unchanged; results that cannot be decoded fail with an
// error matching ErrDecode.
package apps

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/logging"
	"github.com/micro-ha/appdriver/internal/remote"
)

// Service is the operation set of Client, for callers that accept a substitute.
type Service interface {
	InstallApp(ctx context.Context, appPath string) error
	InstallAppWithOptions(ctx context.Context, appPath string, opts appmanagement.InstallOptions) error
	IsAppInstalled(ctx context.Context, bundleID string) (bool, error)
	RunAppInBackground(ctx context.Context, duration time.Duration) error
	RemoveApp(ctx context.Context, bundleID string) (bool, error)
	RemoveAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.RemoveOptions) (bool, error)
	ActivateApp(ctx context.Context, bundleID string) error
	ActivateAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.ActivateOptions) error
	QueryAppState(ctx context.Context, bundleID string) (appmanagement.State, error)
	TerminateApp(ctx context.Context, bundleID string) (bool, error)
	TerminateAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.TerminateOptions) (bool, error)
}

var _ Service = (*Client)(nil)

// Client issues application lifecycle commands. It holds no mutable state and is
// safe for concurrent use when its executor is.
type Client struct {
	executor remote.Executor
	logger   *slog.Logger
}

func New(executor remote.Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{executor: executor, logger: logger}
}

// InstallApp installs the app at appPath, a local path on the server host or a
// remote URL.
func (c *Client) InstallApp(ctx context.Context, appPath string) error {
	return c.InstallAppWithOptions(ctx, appPath, nil)
}

// InstallAppWithOptions installs the app with platform-specific options. Nil
// options are treated as absent.
func (c *Client) InstallAppWithOptions(ctx context.Context, appPath string, opts appmanagement.InstallOptions) error {
	args := prepare([]string{"appPath"}, []any{appPath}, optionsOf(opts))
	_, err := c.execute(ctx, remote.InstallApp, args)
	return err
}

// IsAppInstalled reports whether the app identified by bundleID is installed.
func (c *Client) IsAppInstalled(ctx context.Context, bundleID string) (bool, error) {
	raw, err := c.execute(ctx, remote.IsAppInstalled, remote.NewArguments("bundleId", bundleID))
	if err != nil {
		return false, err
	}
	return decodeBool(remote.IsAppInstalled, raw)
}

// RunAppInBackground sends the current app to the background for duration and
// blocks until the server brings it back. Resolution is one millisecond. A zero
// or negative duration switches to the home screen and returns immediately.
func (c *Client) RunAppInBackground(ctx context.Context, duration time.Duration) error {
	_, err := c.execute(ctx, remote.RunAppInBackground, remote.NewArguments("seconds", backgroundSeconds(duration)))
	return err
}

// RemoveApp uninstalls the app and reports whether it was removed.
func (c *Client) RemoveApp(ctx context.Context, bundleID string) (bool, error) {
	return c.RemoveAppWithOptions(ctx, bundleID, nil)
}

func (c *Client) RemoveAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.RemoveOptions) (bool, error) {
	args := prepare([]string{"bundleId"}, []any{bundleID}, optionsOf(opts))
	raw, err := c.execute(ctx, remote.RemoveApp, args)
	if err != nil {
		return false, err
	}
	return decodeBool(remote.RemoveApp, raw)
}

// ActivateApp starts the app if it is installed but not running, or brings it
// to the foreground if it runs in the background.
func (c *Client) ActivateApp(ctx context.Context, bundleID string) error {
	return c.ActivateAppWithOptions(ctx, bundleID, nil)
}

func (c *Client) ActivateAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.ActivateOptions) error {
	args := prepare([]string{"bundleId"}, []any{bundleID}, optionsOf(opts))
	_, err := c.execute(ctx, remote.ActivateApp, args)
	return err
}

// QueryAppState returns the lifecycle state of the app.
func (c *Client) QueryAppState(ctx context.Context, bundleID string) (appmanagement.State, error) {
	raw, err := c.execute(ctx, remote.QueryAppState, remote.NewArguments("bundleId", bundleID))
	if err != nil {
		return 0, err
	}
	return decodeState(remote.QueryAppState, raw)
}

// TerminateApp stops the app and reports whether it was running and has been
// stopped.
func (c *Client) TerminateApp(ctx context.Context, bundleID string) (bool, error) {
	return c.TerminateAppWithOptions(ctx, bundleID, nil)
}

func (c *Client) TerminateAppWithOptions(ctx context.Context, bundleID string, opts appmanagement.TerminateOptions) (bool, error) {
	args := prepare([]string{"bundleId"}, []any{bundleID}, optionsOf(opts))
	raw, err := c.execute(ctx, remote.TerminateApp, args)
	if err != nil {
		return false, err
	}
	return decodeBool(remote.TerminateApp, raw)
}

func (c *Client) execute(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error) {
	startedAt := time.Now()
	raw, err := c.executor.Execute(ctx, cmd, args)
	c.logger.Debug(
		"app command",
		"command", cmd.Name(),
		"args", args.Keys(),
		"ok", err == nil,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return raw, err
}

// backgroundSeconds converts d to fractional seconds at millisecond resolution.
func backgroundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000.0
}
