package payload

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, raw string) *Options {
	t.Helper()
	var opts Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return &opts
}

func encode(t *testing.T, value any) string {
	t.Helper()
	encoded, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(encoded)
}

func TestAndroidInstallOptions(t *testing.T) {
	opts, err := decode(t, `{"platform":"Android","use_sdcard":false,"timeout_ms":1500,"replace":true}`).InstallOptions()
	if err != nil {
		t.Fatalf("InstallOptions: %v", err)
	}
	if got := encode(t, opts.Build()); got != `{"replace":true,"timeout":1500,"useSdcard":false}` {
		t.Fatalf("Build() = %s", got)
	}
}

func TestIOSInstallOptions(t *testing.T) {
	opts, err := decode(t, `{"platform":"ios","strategy":"parallel","timeout_ms":2000}`).InstallOptions()
	if err != nil {
		t.Fatalf("InstallOptions: %v", err)
	}
	if got := encode(t, opts.Build()); got != `{"timeoutMs":2000,"strategy":"parallel"}` {
		t.Fatalf("Build() = %s", got)
	}
}

func TestPlatformIsRequired(t *testing.T) {
	_, err := decode(t, `{"replace":true}`).InstallOptions()
	var payloadErr *Error
	if !errors.As(err, &payloadErr) || !strings.Contains(payloadErr.Reason, "platform is required") {
		t.Fatalf("error = %v", err)
	}

	if _, err := decode(t, `{"platform":"windows"}`).InstallOptions(); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
}

func TestForeignFieldsAreListed(t *testing.T) {
	_, err := decode(t, `{"platform":"android","strategy":"serial","keep_data":true}`).InstallOptions()
	if err == nil || !strings.Contains(err.Error(), "keep_data, strategy") {
		t.Fatalf("error = %v", err)
	}
}

func TestOperationsWithoutPlatformOptions(t *testing.T) {
	if _, err := decode(t, `{"platform":"ios"}`).RemoveOptions(); err == nil {
		t.Fatalf("ios has no remove options")
	}
	if _, err := decode(t, `{"platform":"ios"}`).TerminateOptions(); err == nil {
		t.Fatalf("ios has no terminate options")
	}
	if _, err := decode(t, `{"platform":"android"}`).ActivateOptions(); err == nil {
		t.Fatalf("android has no activate options")
	}
}

func TestRemoveAndTerminateOptions(t *testing.T) {
	remove, err := decode(t, `{"platform":"android","keep_data":true,"timeout_ms":10}`).RemoveOptions()
	if err != nil {
		t.Fatalf("RemoveOptions: %v", err)
	}
	if got := encode(t, remove.Build()); got != `{"timeout":10,"keepData":true}` {
		t.Fatalf("remove Build() = %s", got)
	}

	terminate, err := decode(t, `{"platform":"android","timeout_ms":500}`).TerminateOptions()
	if err != nil {
		t.Fatalf("TerminateOptions: %v", err)
	}
	if got := encode(t, terminate.Build()); got != `{"timeout":500}` {
		t.Fatalf("terminate Build() = %s", got)
	}

	if _, err := decode(t, `{"platform":"android","timeout_ms":-1}`).TerminateOptions(); err == nil {
		t.Fatalf("negative timeout must be rejected")
	}
}

func TestActivateOptionsKeepEmptyArguments(t *testing.T) {
	opts, err := decode(t, `{"platform":"ios","arguments":[]}`).ActivateOptions()
	if err != nil {
		t.Fatalf("ActivateOptions: %v", err)
	}
	if got := encode(t, opts.Build()); got != `{"arguments":[]}` {
		t.Fatalf("Build() = %s", got)
	}
}
