// Package ios provides application management options understood by the iOS
// automation driver.
package ios

import (
	"sort"
	"time"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/remote"
)

var (
	_ appmanagement.InstallOptions  = InstallOptions{}
	_ appmanagement.ActivateOptions = ActivateOptions{}
)

// Install strategies accepted by the driver.
const (
	StrategySerial    = "serial"
	StrategyParallel  = "parallel"
	StrategyIOSDeploy = "ios-deploy"
)

type InstallOptions struct {
	timeout  appmanagement.Optional[time.Duration]
	strategy appmanagement.Optional[string]
}

func (o InstallOptions) WithTimeout(timeout time.Duration) InstallOptions {
	o.timeout = appmanagement.Some(timeout)
	return o
}

// WithStrategy selects how the bundle is pushed to a real device.
func (o InstallOptions) WithStrategy(strategy string) InstallOptions {
	o.strategy = appmanagement.Some(strategy)
	return o
}

func (o InstallOptions) Build() remote.Arguments {
	var args remote.Arguments
	if timeout, ok := o.timeout.Get(); ok {
		args.Add("timeoutMs", timeout.Milliseconds())
	}
	if strategy, ok := o.strategy.Get(); ok {
		args.Add("strategy", strategy)
	}
	return args
}

// ActivateOptions passes process arguments and environment to a launched app.
// They have no effect when the app is already running.
type ActivateOptions struct {
	arguments   []string
	environment map[string]string
}

func (o ActivateOptions) WithArguments(arguments ...string) ActivateOptions {
	o.arguments = make([]string, len(arguments))
	copy(o.arguments, arguments)
	return o
}

func (o ActivateOptions) WithEnvironment(environment map[string]string) ActivateOptions {
	copied := make(map[string]string, len(environment))
	for key, value := range environment {
		copied[key] = value
	}
	o.environment = copied
	return o
}

func (o ActivateOptions) Build() remote.Arguments {
	var args remote.Arguments
	if o.arguments != nil {
		arguments := make([]string, len(o.arguments))
		copy(arguments, o.arguments)
		args.Add("arguments", arguments)
	}
	if o.environment != nil {
		keys := make([]string, 0, len(o.environment))
		for key := range o.environment {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var env remote.Arguments
		for _, key := range keys {
			env.Add(key, o.environment[key])
		}
		args.Add("environment", env)
	}
	return args
}
