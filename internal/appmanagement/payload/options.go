// Package payload maps a loosely typed, platform-tagged option set (as received
// over HTTP or from command-line flags) onto the platform option types.
package payload

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/appmanagement/android"
	"github.com/micro-ha/appdriver/internal/appmanagement/ios"
)

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Options is the JSON form of every platform option type. Only the
// fields that belong to the platform and operation may be set.
type Options struct {
	Platform          string            `json:"platform"`
	TimeoutMS         *int64            `json:"timeout_ms,omitempty"`
	Replace           *bool             `json:"replace,omitempty"`
	AllowTestPackages *bool             `json:"allow_test_packages,omitempty"`
	UseSdcard         *bool             `json:"use_sdcard,omitempty"`
	GrantPermissions  *bool             `json:"grant_permissions,omitempty"`
	KeepData          *bool             `json:"keep_data,omitempty"`
	Strategy          *string           `json:"strategy,omitempty"`
	Arguments         *[]string         `json:"arguments,omitempty"`
	Environment       map[string]string `json:"environment,omitempty"`
}

// Error reports a payload that cannot be mapped onto platform options.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	if e == nil {
		return "invalid options"
	}
	return "invalid options: " + e.Reason
}

func (p *Options) platform() (string, error) {
	platform := strings.ToLower(strings.TrimSpace(p.Platform))
	switch platform {
	case PlatformAndroid, PlatformIOS:
		return platform, nil
	case "":
		return "", &Error{Reason: "platform is required"}
	default:
		return "", &Error{Reason: fmt.Sprintf("unsupported platform %q", p.Platform)}
	}
}

// setFields lists the JSON names of every field present in the payload.
func (p *Options) setFields() map[string]bool {
	fields := map[string]bool{
		"timeout_ms":          p.TimeoutMS != nil,
		"replace":             p.Replace != nil,
		"allow_test_packages": p.AllowTestPackages != nil,
		"use_sdcard":          p.UseSdcard != nil,
		"grant_permissions":   p.GrantPermissions != nil,
		"keep_data":           p.KeepData != nil,
		"strategy":            p.Strategy != nil,
		"arguments":           p.Arguments != nil,
		"environment":         p.Environment != nil,
	}
	for name, set := range fields {
		if !set {
			delete(fields, name)
		}
	}
	return fields
}

func (p *Options) allowOnly(platform, operation string, allowed ...string) error {
	fields := p.setFields()
	for _, name := range allowed {
		delete(fields, name)
	}
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Error{Reason: fmt.Sprintf("%s %s options do not accept %s", platform, operation, strings.Join(names, ", "))}
}

func (p *Options) timeout() (time.Duration, error) {
	if *p.TimeoutMS < 0 {
		return 0, &Error{Reason: "timeout_ms must not be negative"}
	}
	return time.Duration(*p.TimeoutMS) * time.Millisecond, nil
}

func (p *Options) InstallOptions() (appmanagement.InstallOptions, error) {
	platform, err := p.platform()
	if err != nil {
		return nil, err
	}
	switch platform {
	case PlatformAndroid:
		if err := p.allowOnly(platform, "install", "timeout_ms", "replace", "allow_test_packages", "use_sdcard", "grant_permissions"); err != nil {
			return nil, err
		}
		opts := android.InstallOptions{}
		if p.Replace != nil {
			opts = opts.WithReplace(*p.Replace)
		}
		if p.TimeoutMS != nil {
			timeout, err := p.timeout()
			if err != nil {
				return nil, err
			}
			opts = opts.WithTimeout(timeout)
		}
		if p.AllowTestPackages != nil {
			opts = opts.WithAllowTestPackages(*p.AllowTestPackages)
		}
		if p.UseSdcard != nil {
			opts = opts.WithUseSdcard(*p.UseSdcard)
		}
		if p.GrantPermissions != nil {
			opts = opts.WithGrantPermissions(*p.GrantPermissions)
		}
		return opts, nil
	default:
		if err := p.allowOnly(platform, "install", "timeout_ms", "strategy"); err != nil {
			return nil, err
		}
		opts := ios.InstallOptions{}
		if p.TimeoutMS != nil {
			timeout, err := p.timeout()
			if err != nil {
				return nil, err
			}
			opts = opts.WithTimeout(timeout)
		}
		if p.Strategy != nil {
			opts = opts.WithStrategy(*p.Strategy)
		}
		return opts, nil
	}
}

func (p *Options) RemoveOptions() (appmanagement.RemoveOptions, error) {
	platform, err := p.platform()
	if err != nil {
		return nil, err
	}
	if platform != PlatformAndroid {
		return nil, &Error{Reason: platform + " has no remove options"}
	}
	if err := p.allowOnly(platform, "remove", "timeout_ms", "keep_data"); err != nil {
		return nil, err
	}
	opts := android.RemoveOptions{}
	if p.TimeoutMS != nil {
		timeout, err := p.timeout()
		if err != nil {
			return nil, err
		}
		opts = opts.WithTimeout(timeout)
	}
	if p.KeepData != nil {
		opts = opts.WithKeepData(*p.KeepData)
	}
	return opts, nil
}

func (p *Options) ActivateOptions() (appmanagement.ActivateOptions, error) {
	platform, err := p.platform()
	if err != nil {
		return nil, err
	}
	if platform != PlatformIOS {
		return nil, &Error{Reason: platform + " has no activate options"}
	}
	if err := p.allowOnly(platform, "activate", "arguments", "environment"); err != nil {
		return nil, err
	}
	opts := ios.ActivateOptions{}
	if p.Arguments != nil {
		opts = opts.WithArguments(*p.Arguments...)
	}
	if p.Environment != nil {
		opts = opts.WithEnvironment(p.Environment)
	}
	return opts, nil
}

func (p *Options) TerminateOptions() (appmanagement.TerminateOptions, error) {
	platform, err := p.platform()
	if err != nil {
		return nil, err
	}
	if platform != PlatformAndroid {
		return nil, &Error{Reason: platform + " has no terminate options"}
	}
	if err := p.allowOnly(platform, "terminate", "timeout_ms"); err != nil {
		return nil, err
	}
	opts := android.TerminateOptions{}
	if p.TimeoutMS != nil {
		timeout, err := p.timeout()
		if err != nil {
			return nil, err
		}
		opts = opts.WithTimeout(timeout)
	}
	return opts, nil
}
