package remote

import "testing"

func TestCommandByName(t *testing.T) {
	for _, want := range []Command{InstallApp, IsAppInstalled, RunAppInBackground, RemoveApp, ActivateApp, QueryAppState, TerminateApp} {
		got, ok := CommandByName(" " + want.Name() + " ")
		if !ok || got != want {
			t.Fatalf("CommandByName(%q) = %v, %v", want.Name(), got, ok)
		}
	}
	if _, ok := CommandByName("rebootDevice"); ok {
		t.Fatalf("unknown name resolved")
	}
	if _, ok := CommandByName(""); ok {
		t.Fatalf("empty name resolved")
	}
}

func TestCommandEndpoint(t *testing.T) {
	cases := []struct {
		cmd  Command
		want string
	}{
		{cmd: QueryAppState, want: "/session/abc/appium/device/app_state"},
		{cmd: RunAppInBackground, want: "/session/abc/appium/app/background"},
		{cmd: NewSession, want: "/session"},
		{cmd: DeleteSession, want: "/session/abc"},
	}
	for _, tc := range cases {
		if got := tc.cmd.Endpoint("abc"); got != tc.want {
			t.Fatalf("%s endpoint = %q, want %q", tc.cmd, got, tc.want)
		}
	}
	if !(Command{}).IsZero() || InstallApp.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}
