package apps

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/appmanagement/android"
	"github.com/micro-ha/appdriver/internal/appmanagement/ios"
	"github.com/micro-ha/appdriver/internal/remote"
	"github.com/micro-ha/appdriver/internal/remote/mock"
)

func mustJSON(t *testing.T, value any) string {
	t.Helper()
	encoded, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %T: %v", value, err)
	}
	return string(encoded)
}

func onlyCall(t *testing.T, executor *mock.Executor) mock.Call {
	t.Helper()
	calls := executor.CallsSnapshot()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	return calls[0]
}

func TestInstallAppSendsOnlyAppPath(t *testing.T) {
	executor := &mock.Executor{}
	client := New(executor, nil)

	if err := client.InstallApp(context.Background(), "/tmp/app.apk"); err != nil {
		t.Fatalf("InstallApp returned error: %v", err)
	}

	call := onlyCall(t, executor)
	if call.Command != remote.InstallApp {
		t.Fatalf("command = %s, want %s", call.Command, remote.InstallApp)
	}
	if got := mustJSON(t, call.Args); got != `{"appPath":"/tmp/app.apk"}` {
		t.Fatalf("args = %s", got)
	}
	if call.Args.Has("options") {
		t.Fatalf("absent options must not produce an options key")
	}
}

func TestShortFormsMatchLongFormsWithAbsentOptions(t *testing.T) {
	ctx := context.Background()
	var nilInstall *android.InstallOptions

	cases := []struct {
		name  string
		short func(c *Client) error
		long  func(c *Client) error
	}{
		{
			name:  "install",
			short: func(c *Client) error { return c.InstallApp(ctx, "/tmp/a.apk") },
			long:  func(c *Client) error { return c.InstallAppWithOptions(ctx, "/tmp/a.apk", nil) },
		},
		{
			name:  "install typed nil",
			short: func(c *Client) error { return c.InstallApp(ctx, "/tmp/a.apk") },
			long:  func(c *Client) error { return c.InstallAppWithOptions(ctx, "/tmp/a.apk", nilInstall) },
		},
		{
			name: "remove",
			short: func(c *Client) error {
				_, err := c.RemoveApp(ctx, "com.example.app")
				return err
			},
			long: func(c *Client) error {
				_, err := c.RemoveAppWithOptions(ctx, "com.example.app", nil)
				return err
			},
		},
		{
			name:  "activate",
			short: func(c *Client) error { return c.ActivateApp(ctx, "com.example.app") },
			long:  func(c *Client) error { return c.ActivateAppWithOptions(ctx, "com.example.app", nil) },
		},
		{
			name: "terminate",
			short: func(c *Client) error {
				_, err := c.TerminateApp(ctx, "com.example.app")
				return err
			},
			long: func(c *Client) error {
				_, err := c.TerminateAppWithOptions(ctx, "com.example.app", nil)
				return err
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shortExec := (&mock.Executor{}).Returning(remote.RemoveApp, true).Returning(remote.TerminateApp, true)
			longExec := (&mock.Executor{}).Returning(remote.RemoveApp, true).Returning(remote.TerminateApp, true)

			if err := tc.short(New(shortExec, nil)); err != nil {
				t.Fatalf("short form error: %v", err)
			}
			if err := tc.long(New(longExec, nil)); err != nil {
				t.Fatalf("long form error: %v", err)
			}

			shortCall := onlyCall(t, shortExec)
			longCall := onlyCall(t, longExec)
			if shortCall.Command != longCall.Command {
				t.Fatalf("commands differ: %s vs %s", shortCall.Command, longCall.Command)
			}
			if !shortCall.Args.Equal(longCall.Args) {
				t.Fatalf("args differ: %s vs %s", shortCall.Args, longCall.Args)
			}
		})
	}
}

func TestRemoveAppReturnsExecutorBoolean(t *testing.T) {
	for _, want := range []bool{true, false} {
		executor := (&mock.Executor{}).Returning(remote.RemoveApp, want)
		got, err := New(executor, nil).RemoveApp(context.Background(), "com.example.app")
		if err != nil {
			t.Fatalf("RemoveApp returned error: %v", err)
		}
		if got != want {
			t.Fatalf("RemoveApp = %v, want %v", got, want)
		}
		call := onlyCall(t, executor)
		if call.Command != remote.RemoveApp {
			t.Fatalf("command = %s", call.Command)
		}
		if got := mustJSON(t, call.Args); got != `{"bundleId":"com.example.app"}` {
			t.Fatalf("args = %s", got)
		}
	}
}

func TestQueryAppStateDecodesCodes(t *testing.T) {
	cases := []struct {
		raw  any
		want appmanagement.State
	}{
		{raw: 0, want: appmanagement.NotInstalled},
		{raw: float64(1), want: appmanagement.NotRunning},
		{raw: json.Number("2"), want: appmanagement.RunningInBackgroundSuspended},
		{raw: int64(3), want: appmanagement.RunningInBackground},
		{raw: json.Number("4"), want: appmanagement.RunningInForeground},
		{raw: json.Number("3.0"), want: appmanagement.RunningInBackground},
		{raw: float64(3), want: appmanagement.RunningInBackground},
	}

	for _, tc := range cases {
		executor := (&mock.Executor{}).Returning(remote.QueryAppState, tc.raw)
		got, err := New(executor, nil).QueryAppState(context.Background(), "com.example.app")
		if err != nil {
			t.Fatalf("QueryAppState(%v) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("QueryAppState(%v) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestQueryAppStateUnknownCodeIsDecodeError(t *testing.T) {
	executor := (&mock.Executor{}).Returning(remote.QueryAppState, json.Number("99"))
	_, err := New(executor, nil).QueryAppState(context.Background(), "com.example.app")
	if err == nil {
		t.Fatalf("expected error for unknown state code")
	}
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if !errors.Is(err, appmanagement.ErrUnknownStateCode) {
		t.Fatalf("expected ErrUnknownStateCode, got %v", err)
	}
	var codeErr *appmanagement.UnknownStateCodeError
	if !errors.As(err, &codeErr) || codeErr.Code != 99 {
		t.Fatalf("expected UnknownStateCodeError{99}, got %v", err)
	}
	if errors.Is(err, remote.ErrRemoteCommand) {
		t.Fatalf("decode error must not look like a remote failure")
	}
}

func TestQueryAppStateRejectsNonIntegralResult(t *testing.T) {
	for _, raw := range []any{nil, "4", 2.5, json.Number("2.5"), json.Number("1e12"), true} {
		executor := (&mock.Executor{}).Returning(remote.QueryAppState, raw)
		_, err := New(executor, nil).QueryAppState(context.Background(), "com.example.app")
		var typeErr *ResultTypeError
		if !errors.As(err, &typeErr) {
			t.Fatalf("QueryAppState(%v) error = %v, want ResultTypeError", raw, err)
		}
	}
}

func TestBooleanResultsAreNotCoerced(t *testing.T) {
	executor := &mock.Executor{}
	client := New(executor, nil)

	_, err := client.IsAppInstalled(context.Background(), "com.example.app")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("missing result: expected ErrDecode, got %v", err)
	}

	executor.Returning(remote.TerminateApp, "true")
	_, err = client.TerminateApp(context.Background(), "com.example.app")
	var typeErr *ResultTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("string result: expected ResultTypeError, got %v", err)
	}
	if typeErr.Command != remote.TerminateApp || typeErr.Want != "bool" {
		t.Fatalf("unexpected error details: %+v", typeErr)
	}
}

func TestRemoteErrorsPropagateUnchanged(t *testing.T) {
	remoteErr := &remote.CommandError{Command: remote.ActivateApp, HTTPStatus: 500, Code: "unknown error", Message: "app not found"}
	executor := (&mock.Executor{}).
		Failing(remote.ActivateApp, remoteErr).
		Failing(remote.IsAppInstalled, remoteErr)
	client := New(executor, nil)

	if err := client.ActivateApp(context.Background(), "com.missing"); err != remoteErr {
		t.Fatalf("ActivateApp error = %v, want the executor error itself", err)
	}
	installed, err := client.IsAppInstalled(context.Background(), "com.missing")
	if err != remoteErr {
		t.Fatalf("IsAppInstalled error = %v, want the executor error itself", err)
	}
	if installed {
		t.Fatalf("expected false on error")
	}
	if errors.Is(err, ErrDecode) {
		t.Fatalf("remote failure must not match ErrDecode")
	}
}

func TestRunAppInBackgroundSeconds(t *testing.T) {
	cases := []struct {
		duration time.Duration
		want     float64
	}{
		{duration: 1500 * time.Millisecond, want: 1.5},
		{duration: 2 * time.Second, want: 2},
		{duration: 1234567 * time.Microsecond, want: 1.234},
		{duration: 0, want: 0},
		{duration: -3 * time.Second, want: -3},
	}

	for _, tc := range cases {
		executor := &mock.Executor{}
		if err := New(executor, nil).RunAppInBackground(context.Background(), tc.duration); err != nil {
			t.Fatalf("RunAppInBackground(%s) error: %v", tc.duration, err)
		}
		call := onlyCall(t, executor)
		if call.Command != remote.RunAppInBackground {
			t.Fatalf("command = %s", call.Command)
		}
		raw, ok := call.Args.Get("seconds")
		if !ok {
			t.Fatalf("missing seconds argument")
		}
		if got := raw.(float64); got != tc.want {
			t.Fatalf("seconds for %s = %v, want %v", tc.duration, got, tc.want)
		}
		if call.Args.Len() != 1 {
			t.Fatalf("expected exactly one argument, got %v", call.Args.Keys())
		}
	}
}

func TestTerminateAppWithOptionsNestsBuiltOptions(t *testing.T) {
	opts := android.TerminateOptions{}.WithTimeout(2 * time.Second)
	executor := (&mock.Executor{}).Returning(remote.TerminateApp, false)

	got, err := New(executor, nil).TerminateAppWithOptions(context.Background(), "com.example.app", opts)
	if err != nil {
		t.Fatalf("TerminateAppWithOptions returned error: %v", err)
	}
	if got {
		t.Fatalf("expected the executor's false to be returned unchanged")
	}

	call := onlyCall(t, executor)
	want := remote.PrepareArguments([]string{"bundleId", "options"}, []any{"com.example.app", opts.Build()})
	if !call.Args.Equal(want) {
		t.Fatalf("args = %s, want %s", call.Args, want)
	}
	if got := mustJSON(t, call.Args); got != `{"bundleId":"com.example.app","options":{"timeout":2000}}` {
		t.Fatalf("args json = %s", got)
	}
}

func TestOptionsNeverShadowFixedParameters(t *testing.T) {
	executor := &mock.Executor{}
	opts := ios.InstallOptions{}.WithStrategy(ios.StrategyParallel).WithTimeout(time.Minute)

	if err := New(executor, nil).InstallAppWithOptions(context.Background(), "/tmp/App.app", opts); err != nil {
		t.Fatalf("InstallAppWithOptions returned error: %v", err)
	}

	call := onlyCall(t, executor)
	keys := call.Args.Keys()
	if len(keys) != 2 || keys[0] != "appPath" || keys[1] != "options" {
		t.Fatalf("keys = %v, want [appPath options]", keys)
	}
	if value, _ := call.Args.Get("appPath"); value != "/tmp/App.app" {
		t.Fatalf("appPath = %v", value)
	}
	nested, _ := call.Args.Get("options")
	if got := mustJSON(t, nested); got != `{"timeoutMs":60000,"strategy":"parallel"}` {
		t.Fatalf("options = %s", got)
	}
}

func TestPrepareKeepsFixedKeyOnCollision(t *testing.T) {
	args := prepare([]string{"options"}, []any{"fixed"}, appmanagement.Some[builder](android.RemoveOptions{}.WithKeepData(true)))
	if args.Len() != 1 {
		t.Fatalf("expected collision to be dropped, got %v", args.Keys())
	}
	if value, _ := args.Get("options"); value != "fixed" {
		t.Fatalf("fixed parameter was overwritten: %v", value)
	}
}

func TestActivateAppWithIOSOptions(t *testing.T) {
	executor := &mock.Executor{}
	opts := ios.ActivateOptions{}.
		WithArguments("-debug", "1").
		WithEnvironment(map[string]string{"LOCALE": "en_US", "API": "staging"})

	if err := New(executor, nil).ActivateAppWithOptions(context.Background(), "com.example.app", opts); err != nil {
		t.Fatalf("ActivateAppWithOptions returned error: %v", err)
	}
	call := onlyCall(t, executor)
	want := `{"bundleId":"com.example.app","options":{"arguments":["-debug","1"],"environment":{"API":"staging","LOCALE":"en_US"}}}`
	if got := mustJSON(t, call.Args); got != want {
		t.Fatalf("args = %s, want %s", got, want)
	}
}

func TestContextIsForwardedToExecutor(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")
	executor := remote.ExecutorFunc(func(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error) {
		if ctx.Value(key{}) != "marker" {
			t.Fatalf("context not forwarded")
		}
		return true, nil
	})
	installed, err := New(executor, nil).IsAppInstalled(ctx, "com.example.app")
	if err != nil || !installed {
		t.Fatalf("IsAppInstalled = %v, %v", installed, err)
	}
}
