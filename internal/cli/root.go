// Package cli implements appctl, a one-shot command-line client that sends a
// single application lifecycle command to the automation server.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/micro-ha/appdriver/internal/apps"
	"github.com/micro-ha/appdriver/internal/config"
	"github.com/micro-ha/appdriver/internal/logging"
	"github.com/micro-ha/appdriver/internal/remote"
)

// Settings carries connection flags after they were merged over the environment.
type Settings struct {
	Remote       remote.Config
	Capabilities map[string]any
	Debug        bool
}

// ServiceFactory opens a facade for one command. The returned release function
// is called once the command finished, also on failure.
type ServiceFactory func(ctx context.Context, settings Settings) (apps.Service, func(), error)

// NewRootCmd creates the appctl root command talking to a real automation server.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithFactory(DialService)
}

// NewRootCmdWithFactory creates the root command with an explicit facade factory
// for testability.
func NewRootCmdWithFactory(factory ServiceFactory) *cobra.Command {
	var (
		serverURL string
		sessionID string
		username  string
		insecure  bool
		debug     bool
	)

	cmd := &cobra.Command{
		Use:           "appctl",
		Short:         "Manage applications on a device under automation",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Install a package on an existing session
  appctl --session 6d1c... install /tmp/app.apk --platform android --grant-permissions

  # Query the state of an app, starting a session from AUTOMATION_CAPABILITIES
  appctl state com.example.app`,
	}
	cmd.PersistentFlags().StringVar(&serverURL, "url", "", "automation server URL (default AUTOMATION_URL)")
	cmd.PersistentFlags().StringVar(&sessionID, "session", "", "existing session id (default AUTOMATION_SESSION_ID)")
	cmd.PersistentFlags().StringVar(&username, "username", "", "basic auth user (default AUTOMATION_USERNAME)")
	cmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	open := func(cmd *cobra.Command) (apps.Service, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		settings := Settings{Remote: cfg.Remote(), Capabilities: cfg.Capabilities, Debug: debug}
		if serverURL != "" {
			settings.Remote.BaseURL = serverURL
		}
		if sessionID != "" {
			settings.Remote.SessionID = sessionID
		}
		if username != "" {
			settings.Remote.Username = username
		}
		if insecure {
			settings.Remote.VerifyTLS = false
		}
		return factory(cmd.Context(), settings)
	}

	cmd.AddCommand(
		newInstallCmd(open),
		newInstalledCmd(open),
		newBackgroundCmd(open),
		newRemoveCmd(open),
		newActivateCmd(open),
		newStateCmd(open),
		newTerminateCmd(open),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// DialService connects to the server over HTTP. A session is created from
// settings.Capabilities when none is configured and deleted on release.
func DialService(ctx context.Context, settings Settings) (apps.Service, func(), error) {
	logger := logging.Discard()
	if settings.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	executor, err := remote.NewHTTPExecutor(settings.Remote)
	if err != nil {
		return nil, nil, err
	}
	executor.WithLogger(logger)

	if strings.TrimSpace(settings.Remote.SessionID) == "" {
		if _, err := executor.StartSession(ctx, settings.Capabilities); err != nil {
			return nil, nil, fmt.Errorf("start session: %w", err)
		}
	}
	release := func() {
		if err := executor.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to delete session", "err", err)
		}
	}
	return apps.New(executor, logger), release, nil
}
