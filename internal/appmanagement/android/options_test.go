package android

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInstallOptionsBuild(t *testing.T) {
	opts := InstallOptions{}.
		WithGrantPermissions(true).
		WithReplace(false).
		WithTimeout(90 * time.Second).
		WithUseSdcard(true).
		WithAllowTestPackages(true)

	encoded, err := json.Marshal(opts.Build())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"replace":false,"timeout":90000,"allowTestPackages":true,"useSdcard":true,"grantPermissions":true}`
	if string(encoded) != want {
		t.Fatalf("Build() = %s, want %s", encoded, want)
	}
}

func TestZeroOptionsBuildEmptyMapping(t *testing.T) {
	for name, args := range map[string]interface{ Len() int }{
		"install":   InstallOptions{}.Build(),
		"remove":    RemoveOptions{}.Build(),
		"terminate": TerminateOptions{}.Build(),
	} {
		if args.Len() != 0 {
			t.Fatalf("%s: expected empty mapping, got %d entries", name, args.Len())
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	install := InstallOptions{}.WithReplace(true).WithTimeout(time.Second)
	remove := RemoveOptions{}.WithKeepData(true).WithTimeout(1500 * time.Millisecond)
	terminate := TerminateOptions{}.WithTimeout(3 * time.Second)

	if !install.Build().Equal(install.Build()) {
		t.Fatalf("install Build() differs between calls")
	}
	if !remove.Build().Equal(remove.Build()) {
		t.Fatalf("remove Build() differs between calls")
	}
	if !terminate.Build().Equal(terminate.Build()) {
		t.Fatalf("terminate Build() differs between calls")
	}

	first := remove.Build()
	first.Add("extra", 1)
	if remove.Build().Has("extra") {
		t.Fatalf("Build() must return a fresh mapping")
	}
}

func TestSettersDoNotMutateReceiver(t *testing.T) {
	base := RemoveOptions{}.WithKeepData(false)
	changed := base.WithKeepData(true).WithTimeout(time.Second)

	if got, _ := base.Build().Get("keepData"); got != false {
		t.Fatalf("base keepData = %v, want false", got)
	}
	if base.Build().Has("timeout") {
		t.Fatalf("base must not gain timeout")
	}
	if got, _ := changed.Build().Get("timeout"); got != int64(1000) {
		t.Fatalf("changed timeout = %v, want 1000", got)
	}
}
