package appmanagement

import (
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle state of an application on the device.
type State int

const (
	NotInstalled State = iota
	NotRunning
	RunningInBackgroundSuspended
	RunningInBackground
	RunningInForeground
)

// ErrUnknownStateCode matches every *UnknownStateCodeError.
var ErrUnknownStateCode = errors.New("unknown application state code")

// UnknownStateCodeError reports a state code outside the known enumeration.
type UnknownStateCodeError struct {
	Code int
}

func (e *UnknownStateCodeError) Error() string {
	if e == nil {
		return ErrUnknownStateCode.Error()
	}
	return fmt.Sprintf("%s %d", ErrUnknownStateCode, e.Code)
}

func (e *UnknownStateCodeError) Is(target error) bool {
	return target == ErrUnknownStateCode
}

var stateNames = map[State]string{
	NotInstalled:                 "NOT_INSTALLED",
	NotRunning:                   "NOT_RUNNING",
	RunningInBackgroundSuspended: "RUNNING_IN_BACKGROUND_SUSPENDED",
	RunningInBackground:          "RUNNING_IN_BACKGROUND",
	RunningInForeground:          "RUNNING_IN_FOREGROUND",
}

// StateOfCode maps a server state code onto State. Unknown codes are an error;
// there is no fallback member.
func StateOfCode(code int) (State, error) {
	state := State(code)
	if _, ok := stateNames[state]; !ok {
		return 0, &UnknownStateCodeError{Code: code}
	}
	return state, nil
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for state, stateName := range stateNames {
		if stateName == normalized {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown application state %q", name)
}

// Code returns the numeric code used on the wire.
func (s State) Code() int {
	return int(s)
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, &UnknownStateCodeError{Code: int(s)}
	}
	return []byte(name), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
