package apps

import (
	"errors"
	"fmt"

	"github.com/micro-ha/appdriver/internal/remote"
)

// ErrDecode matches failures where the server answered but the result could not
// be interpreted. Remote failures never match it.
var ErrDecode = errors.New("unexpected command result")

// ResultTypeError means the result has the wrong dynamic type.
type ResultTypeError struct {
	Command remote.Command
	Want    string
	Got     any
}

func (e *ResultTypeError) Error() string {
	if e == nil {
		return ErrDecode.Error()
	}
	return fmt.Sprintf("%s: %s: want %s, got %T (%v)", e.Command, ErrDecode, e.Want, e.Got, e.Got)
}

func (e *ResultTypeError) Is(target error) bool {
	return target == ErrDecode
}
