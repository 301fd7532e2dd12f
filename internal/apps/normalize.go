package apps

import (
	"reflect"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/remote"
)

// optionsKey is where option arguments are nested; they are never flattened
// next to the fixed parameters.
const optionsKey = "options"

type builder interface {
	Build() remote.Arguments
}

// prepare zips the fixed parameters and, when options are present, nests their
// built arguments under optionsKey. A fixed key always wins over the options key.
func prepare[T builder](names []string, values []any, opts appmanagement.Optional[T]) remote.Arguments {
	args := remote.PrepareArguments(names, values)
	if options, ok := opts.Get(); ok {
		args.Add(optionsKey, options.Build())
	}
	return args
}

// optionsOf turns a nil interface or a typed nil pointer into an absent option.
func optionsOf[T builder](opts T) appmanagement.Optional[T] {
	if isNil(opts) {
		return appmanagement.None[T]()
	}
	return appmanagement.Some(opts)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
