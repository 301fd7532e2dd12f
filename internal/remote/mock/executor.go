package mock

import (
	"context"
	"sync"

	"github.com/micro-ha/appdriver/internal/remote"
)

// Call stores one Execute invocation.
type Call struct {
	Command remote.Command
	Args    remote.Arguments
}

// Executor is a programmable remote.Executor that records every call.
type Executor struct {
	mu          sync.Mutex
	ExecuteFunc func(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error)
	Results     map[remote.Command]any
	Errors      map[remote.Command]error
	Calls       []Call
}

func (e *Executor) Execute(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, Call{Command: cmd, Args: args.Clone()})
	execute := e.ExecuteFunc
	result := e.Results[cmd]
	err := e.Errors[cmd]
	e.mu.Unlock()

	if execute != nil {
		return execute(ctx, cmd, args)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Returning programs a fixed result for cmd.
func (e *Executor) Returning(cmd remote.Command, result any) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Results == nil {
		e.Results = map[remote.Command]any{}
	}
	e.Results[cmd] = result
	return e
}

// Failing programs a fixed error for cmd.
func (e *Executor) Failing(cmd remote.Command, err error) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Errors == nil {
		e.Errors = map[remote.Command]error{}
	}
	e.Errors[cmd] = err
	return e
}

// CallsSnapshot returns copy of accumulated calls.
func (e *Executor) CallsSnapshot() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.Calls))
	copy(out, e.Calls)
	return out
}

// LastCall returns the most recent call.
func (e *Executor) LastCall() (Call, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Calls) == 0 {
		return Call{}, false
	}
	return e.Calls[len(e.Calls)-1], true
}
