// Package appmanagement holds the value types shared by application lifecycle
// commands: the application state enumeration and the option capabilities that
// platform packages implement.
package appmanagement

import "github.com/micro-ha/appdriver/internal/remote"

// InstallOptions contributes extra arguments to an install command.
type InstallOptions interface {
	Build() remote.Arguments
}

// RemoveOptions contributes extra arguments to a remove command.
type RemoveOptions interface {
	Build() remote.Arguments
}

// ActivateOptions contributes extra arguments to an activate command.
type ActivateOptions interface {
	Build() remote.Arguments
}

// TerminateOptions contributes extra arguments to a terminate command.
type TerminateOptions interface {
	Build() remote.Arguments
}

// Optional holds a value that may be absent.
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) IsPresent() bool {
	return o.present
}
