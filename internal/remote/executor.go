package remote

import "context"

// Executor sends one command with its arguments to the automation server and
// returns the undecoded result value.
type Executor interface {
	Execute(ctx context.Context, cmd Command, args Arguments) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command, args Arguments) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, cmd Command, args Arguments) (any, error) {
	return f(ctx, cmd, args)
}
