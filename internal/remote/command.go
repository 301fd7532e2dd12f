package remote

import (
	"net/http"
	"strings"
)

// Command names one remote operation understood by the automation server.
// Values are only available through the package-level variables below.
type Command struct {
	name   string
	method string
	path   string
}

var (
	InstallApp         = Command{name: "installApp", method: http.MethodPost, path: "/appium/device/install_app"}
	IsAppInstalled     = Command{name: "isAppInstalled", method: http.MethodPost, path: "/appium/device/app_installed"}
	RunAppInBackground = Command{name: "runAppInBackground", method: http.MethodPost, path: "/appium/app/background"}
	RemoveApp          = Command{name: "removeApp", method: http.MethodPost, path: "/appium/device/remove_app"}
	ActivateApp        = Command{name: "activateApp", method: http.MethodPost, path: "/appium/device/activate_app"}
	QueryAppState      = Command{name: "queryAppState", method: http.MethodPost, path: "/appium/device/app_state"}
	TerminateApp       = Command{name: "terminateApp", method: http.MethodPost, path: "/appium/device/terminate_app"}

	// Session commands are not bound to an existing session.
	NewSession    = Command{name: "newSession", method: http.MethodPost, path: "/session"}
	DeleteSession = Command{name: "deleteSession", method: http.MethodDelete, path: ""}
)

var commandsByName = map[string]Command{
	InstallApp.name:         InstallApp,
	IsAppInstalled.name:     IsAppInstalled,
	RunAppInBackground.name: RunAppInBackground,
	RemoveApp.name:          RemoveApp,
	ActivateApp.name:        ActivateApp,
	QueryAppState.name:      QueryAppState,
	TerminateApp.name:       TerminateApp,
	NewSession.name:         NewSession,
	DeleteSession.name:      DeleteSession,
}

// CommandByName resolves a stable command name.
func CommandByName(name string) (Command, bool) {
	cmd, ok := commandsByName[strings.TrimSpace(name)]
	return cmd, ok
}

func (c Command) Name() string {
	return c.name
}

func (c Command) String() string {
	if c.name == "" {
		return "<unknown command>"
	}
	return c.name
}

// Method returns the HTTP verb used by the HTTP transport.
func (c Command) Method() string {
	return c.method
}

// Endpoint returns the request path for the given session.
func (c Command) Endpoint(sessionID string) string {
	switch c {
	case NewSession:
		return c.path
	case DeleteSession:
		return "/session/" + sessionID
	default:
		return "/session/" + sessionID + c.path
	}
}

// IsZero reports whether c was not obtained from this package.
func (c Command) IsZero() bool {
	return c == Command{}
}
