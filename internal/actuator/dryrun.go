package actuator

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DryRun is the default actuator: it records every write in memory and
// touches nothing on the host. Prior values behave like a real config
// store, so apply/revert/idempotence semantics are fully exercised.
type DryRun struct {
	logger *zap.Logger

	mu       sync.Mutex
	values   map[string]string // "domain/key" -> value
	services map[string]bool
	launched []string
}

// NewDryRun creates a dry-run actuator.
func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{
		logger:   logger,
		values:   make(map[string]string),
		services: make(map[string]bool),
	}
}

// Name implements Actuator.
func (d *DryRun) Name() string { return "dryrun" }

// WriteConfigValue implements Actuator.
func (d *DryRun) WriteConfigValue(ctx context.Context, domain, key, value string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	k := domain + "/" + key
	prior := d.values[k]
	d.values[k] = value

	d.logger.Debug("dryrun config write",
		zap.String("domain", domain),
		zap.String("key", key),
		zap.String("value", value),
		zap.String("prior", prior))
	return prior, nil
}

// SetServiceState implements Actuator.
func (d *DryRun) SetServiceState(ctx context.Context, name string, enabled bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prior, known := d.services[name]
	if !known {
		// Unknown services are assumed enabled, matching typical hosts.
		prior = true
	}
	d.services[name] = enabled

	d.logger.Debug("dryrun service state",
		zap.String("service", name),
		zap.Bool("enabled", enabled),
		zap.Bool("prior", prior))
	return prior, nil
}

// LaunchCompanion implements Actuator.
func (d *DryRun) LaunchCompanion(ctx context.Context, app string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.launched = append(d.launched, app)
	d.logger.Debug("dryrun companion launch", zap.String("app", app))
	return nil
}

// ConfigValue returns the current recorded value for a domain/key pair.
func (d *DryRun) ConfigValue(domain, key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[domain+"/"+key]
}

// ServiceEnabled returns the current recorded state for a service.
func (d *DryRun) ServiceEnabled(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	enabled, known := d.services[name]
	if !known {
		return true
	}
	return enabled
}

// Launched returns the companion apps launched so far.
func (d *DryRun) Launched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.launched))
	copy(out, d.launched)
	return out
}
