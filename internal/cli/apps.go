package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/micro-ha/appdriver/internal/appmanagement/payload"
	"github.com/micro-ha/appdriver/internal/apps"
)

type opener func(cmd *cobra.Command) (apps.Service, func(), error)

// withService opens the facade, runs fn and releases the session.
func withService(open opener, cmd *cobra.Command, fn func(svc apps.Service) error) error {
	svc, release, err := open(cmd)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	return fn(svc)
}

// optionFlags registers the platform option flags shared by several commands.
type optionFlags struct {
	platform          string
	timeout           time.Duration
	replace           bool
	allowTestPackages bool
	useSdcard         bool
	grantPermissions  bool
	keepData          bool
	strategy          string
	arguments         []string
	environment       []string
}

var optionFlagNames = []string{
	"platform", "timeout", "replace", "allow-test-packages", "use-sdcard",
	"grant-permissions", "keep-data", "strategy", "arg", "env",
}

func (f *optionFlags) register(cmd *cobra.Command, names ...string) {
	flags := cmd.Flags()
	flags.StringVar(&f.platform, "platform", "", "platform of the options: android or ios")
	for _, name := range names {
		switch name {
		case "timeout":
			flags.DurationVar(&f.timeout, name, 0, "driver-side timeout")
		case "replace":
			flags.BoolVar(&f.replace, name, false, "reinstall over an existing package (android)")
		case "allow-test-packages":
			flags.BoolVar(&f.allowTestPackages, name, false, "allow test packages (android)")
		case "use-sdcard":
			flags.BoolVar(&f.useSdcard, name, false, "install to the SD card (android)")
		case "grant-permissions":
			flags.BoolVar(&f.grantPermissions, name, false, "grant runtime permissions (android)")
		case "keep-data":
			flags.BoolVar(&f.keepData, name, false, "keep app data and caches (android)")
		case "strategy":
			flags.StringVar(&f.strategy, name, "", "install strategy: serial, parallel or ios-deploy (ios)")
		case "arg":
			flags.StringArrayVar(&f.arguments, name, nil, "process argument, repeatable (ios)")
		case "env":
			flags.StringArrayVar(&f.environment, name, nil, "environment KEY=VALUE, repeatable (ios)")
		}
	}
}

// options returns nil when no option flag was given.
func (f *optionFlags) options(cmd *cobra.Command) (*payload.Options, error) {
	flags := cmd.Flags()
	changed := false
	for _, name := range optionFlagNames {
		changed = changed || flags.Changed(name)
	}
	if !changed {
		return nil, nil
	}
	opts := &payload.Options{Platform: f.platform}

	if flags.Changed("timeout") {
		ms := f.timeout.Milliseconds()
		opts.TimeoutMS = &ms
	}
	setBool := func(name string, value bool, target **bool) {
		if flags.Changed(name) {
			v := value
			*target = &v
		}
	}
	setBool("replace", f.replace, &opts.Replace)
	setBool("allow-test-packages", f.allowTestPackages, &opts.AllowTestPackages)
	setBool("use-sdcard", f.useSdcard, &opts.UseSdcard)
	setBool("grant-permissions", f.grantPermissions, &opts.GrantPermissions)
	setBool("keep-data", f.keepData, &opts.KeepData)
	if flags.Changed("strategy") {
		strategy := f.strategy
		opts.Strategy = &strategy
	}
	if flags.Changed("arg") {
		arguments := append([]string{}, f.arguments...)
		opts.Arguments = &arguments
	}
	if flags.Changed("env") {
		opts.Environment = make(map[string]string, len(f.environment))
		for _, pair := range f.environment {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", pair)
			}
			opts.Environment[key] = value
		}
	}
	return opts, nil
}

func newInstallCmd(open opener) *cobra.Command {
	var flags optionFlags
	cmd := &cobra.Command{
		Use:   "install APP_PATH",
		Short: "Install an app from a local path or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return withService(open, cmd, func(svc apps.Service) error {
				if opts == nil {
					err = svc.InstallApp(cmd.Context(), args[0])
				} else {
					installOpts, optsErr := opts.InstallOptions()
					if optsErr != nil {
						return optsErr
					}
					err = svc.InstallAppWithOptions(cmd.Context(), args[0], installOpts)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", args[0])
				return nil
			})
		},
	}
	flags.register(cmd, "timeout", "replace", "allow-test-packages", "use-sdcard", "grant-permissions", "strategy")
	return cmd
}

func newInstalledCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "installed BUNDLE_ID",
		Short: "Report whether an app is installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(open, cmd, func(svc apps.Service) error {
				installed, err := svc.IsAppInstalled(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), installed)
				return nil
			})
		},
	}
}

func newBackgroundCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "background DURATION",
		Short: "Send the foreground app to the background, e.g. 1500ms; negative keeps it there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			return withService(open, cmd, func(svc apps.Service) error {
				return svc.RunAppInBackground(cmd.Context(), duration)
			})
		},
	}
}

func newRemoveCmd(open opener) *cobra.Command {
	var flags optionFlags
	cmd := &cobra.Command{
		Use:   "remove BUNDLE_ID",
		Short: "Uninstall an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return withService(open, cmd, func(svc apps.Service) error {
				var removed bool
				if opts == nil {
					removed, err = svc.RemoveApp(cmd.Context(), args[0])
				} else {
					removeOpts, optsErr := opts.RemoveOptions()
					if optsErr != nil {
						return optsErr
					}
					removed, err = svc.RemoveAppWithOptions(cmd.Context(), args[0], removeOpts)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), removed)
				return nil
			})
		},
	}
	flags.register(cmd, "timeout", "keep-data")
	return cmd
}

func newActivateCmd(open opener) *cobra.Command {
	var flags optionFlags
	cmd := &cobra.Command{
		Use:   "activate BUNDLE_ID",
		Short: "Launch an app or bring it to the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return withService(open, cmd, func(svc apps.Service) error {
				if opts == nil {
					return svc.ActivateApp(cmd.Context(), args[0])
				}
				activateOpts, optsErr := opts.ActivateOptions()
				if optsErr != nil {
					return optsErr
				}
				return svc.ActivateAppWithOptions(cmd.Context(), args[0], activateOpts)
			})
		},
	}
	flags.register(cmd, "arg", "env")
	return cmd
}

func newStateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "state BUNDLE_ID",
		Short: "Print the lifecycle state of an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(open, cmd, func(svc apps.Service) error {
				state, err := svc.QueryAppState(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", state, state.Code())
				return nil
			})
		},
	}
}

func newTerminateCmd(open opener) *cobra.Command {
	var flags optionFlags
	cmd := &cobra.Command{
		Use:   "terminate BUNDLE_ID",
		Short: "Stop a running app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return withService(open, cmd, func(svc apps.Service) error {
				var terminated bool
				if opts == nil {
					terminated, err = svc.TerminateApp(cmd.Context(), args[0])
				} else {
					terminateOpts, optsErr := opts.TerminateOptions()
					if optsErr != nil {
						return optsErr
					}
					terminated, err = svc.TerminateAppWithOptions(cmd.Context(), args[0], terminateOpts)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), terminated)
				return nil
			})
		},
	}
	flags.register(cmd, "timeout")
	return cmd
}
