// Package android provides application management options understood by the
// Android automation drivers.
package android

import (
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/remote"
)

var (
	_ appmanagement.InstallOptions   = InstallOptions{}
	_ appmanagement.RemoveOptions    = RemoveOptions{}
	_ appmanagement.TerminateOptions = TerminateOptions{}
)

// InstallOptions configures package installation. The zero value sets nothing.
type InstallOptions struct {
	replace           appmanagement.Optional[bool]
	timeout           appmanagement.Optional[time.Duration]
	allowTestPackages appmanagement.Optional[bool]
	useSdcard         appmanagement.Optional[bool]
	grantPermissions  appmanagement.Optional[bool]
}

// WithReplace controls whether an already installed package is upgraded in place.
func (o InstallOptions) WithReplace(enabled bool) InstallOptions {
	o.replace = appmanagement.Some(enabled)
	return o
}

// WithTimeout bounds the install on the device side.
func (o InstallOptions) WithTimeout(timeout time.Duration) InstallOptions {
	o.timeout = appmanagement.Some(timeout)
	return o
}

func (o InstallOptions) WithAllowTestPackages(enabled bool) InstallOptions {
	o.allowTestPackages = appmanagement.Some(enabled)
	return o
}

func (o InstallOptions) WithUseSdcard(enabled bool) InstallOptions {
	o.useSdcard = appmanagement.Some(enabled)
	return o
}

// WithGrantPermissions grants all runtime permissions declared in the manifest.
func (o InstallOptions) WithGrantPermissions(enabled bool) InstallOptions {
	o.grantPermissions = appmanagement.Some(enabled)
	return o
}

func (o InstallOptions) Build() remote.Arguments {
	var args remote.Arguments
	putBool(&args, "replace", o.replace)
	putMillis(&args, "timeout", o.timeout)
	putBool(&args, "allowTestPackages", o.allowTestPackages)
	putBool(&args, "useSdcard", o.useSdcard)
	putBool(&args, "grantPermissions", o.grantPermissions)
	return args
}

// RemoveOptions configures package removal.
type RemoveOptions struct {
	timeout  appmanagement.Optional[time.Duration]
	keepData appmanagement.Optional[bool]
}

func (o RemoveOptions) WithTimeout(timeout time.Duration) RemoveOptions {
	o.timeout = appmanagement.Some(timeout)
	return o
}

// WithKeepData keeps the application data and cache directories after removal.
func (o RemoveOptions) WithKeepData(enabled bool) RemoveOptions {
	o.keepData = appmanagement.Some(enabled)
	return o
}

func (o RemoveOptions) Build() remote.Arguments {
	var args remote.Arguments
	putMillis(&args, "timeout", o.timeout)
	putBool(&args, "keepData", o.keepData)
	return args
}

// TerminateOptions configures force-stopping a package.
type TerminateOptions struct {
	timeout appmanagement.Optional[time.Duration]
}

// WithTimeout sets how long the server waits for the app to stop.
func (o TerminateOptions) WithTimeout(timeout time.Duration) TerminateOptions {
	o.timeout = appmanagement.Some(timeout)
	return o
}

func (o TerminateOptions) Build() remote.Arguments {
	var args remote.Arguments
	putMillis(&args, "timeout", o.timeout)
	return args
}

func putBool(args *remote.Arguments, key string, value appmanagement.Optional[bool]) {
	if v, ok := value.Get(); ok {
		args.Add(key, v)
	}
}

func putMillis(args *remote.Arguments, key string, value appmanagement.Optional[time.Duration]) {
	if v, ok := value.Get(); ok {
		args.Add(key, v.Milliseconds())
	}
}
