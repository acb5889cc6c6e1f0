// Package actuator defines the narrow interface through which the core
// writes configuration to the host, plus the built-in backends. Any error
// from an actuator call is a per-change failure for the caller, never
// fatal to a whole plan.
package actuator

import "context"

// Actuator is the write seam to the host. Every call carries a context
// deadline; implementations must honor cancellation. Writes return the
// prior value so the applier can capture it before the change lands
// (capture-before-write is what makes revert possible).
type Actuator interface {
	// Name identifies the backend ("dryrun", "exec").
	Name() string

	// WriteConfigValue sets a configuration value and returns the value
	// that was in place before the write.
	WriteConfigValue(ctx context.Context, domain, key, value string) (prior string, err error)

	// SetServiceState enables or disables a service and returns the prior
	// enabled state.
	SetServiceState(ctx context.Context, name string, enabled bool) (prior bool, err error)

	// LaunchCompanion starts a companion application. Launches are not
	// revertible; revert treats them as skipped.
	LaunchCompanion(ctx context.Context, app string) error
}
