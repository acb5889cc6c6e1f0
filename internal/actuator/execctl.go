package actuator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// allowedServices is the strict allowlist of services the exec actuator
// may start or stop. Anything else fails as a per-change error.
var allowedServices = map[string]bool{
	"search-indexer":  true,
	"update-agent":    true,
	"telemetry-relay": true,
	"print-spooler":   true,
}

// ExecCtl is the host-backed actuator. Config values live as files under a
// state directory, service state is driven through an allowlisted service
// manager command, and companions are launched detached.
type ExecCtl struct {
	stateDir   string
	serviceCmd string
	logger     *zap.Logger
}

// NewExecCtl creates an exec actuator rooted at stateDir.
func NewExecCtl(stateDir string, logger *zap.Logger) (*ExecCtl, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &ExecCtl{
		stateDir:   stateDir,
		serviceCmd: "systemctl",
		logger:     logger,
	}, nil
}

// Name implements Actuator.
func (e *ExecCtl) Name() string { return "exec" }

// WriteConfigValue implements Actuator. Values are one file per key under
// a per-domain directory.
func (e *ExecCtl) WriteConfigValue(ctx context.Context, domain, key, value string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.ContainsAny(domain, "/\\") || strings.ContainsAny(key, "/\\") {
		return "", fmt.Errorf("invalid config path %q/%q", domain, key)
	}

	dir := filepath.Join(e.stateDir, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create domain dir: %w", err)
	}

	path := filepath.Join(dir, key)
	prior := ""
	if data, err := os.ReadFile(path); err == nil {
		prior = string(data)
	}

	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return "", fmt.Errorf("write %s/%s: %w", domain, key, err)
	}

	e.logger.Debug("config value written",
		zap.String("domain", domain),
		zap.String("key", key),
		zap.String("value", value))
	return prior, nil
}

// SetServiceState implements Actuator.
func (e *ExecCtl) SetServiceState(ctx context.Context, name string, enabled bool) (bool, error) {
	if !allowedServices[name] {
		return false, fmt.Errorf("service not in allowlist: %s", name)
	}

	prior, err := e.serviceActive(ctx, name)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", name, err)
	}
	if prior == enabled {
		return prior, nil
	}

	verb := "stop"
	if enabled {
		verb = "start"
	}
	if out, err := e.run(ctx, e.serviceCmd, verb, name); err != nil {
		return prior, fmt.Errorf("%s %s: %w: %s", verb, name, err, out)
	}

	e.logger.Info("service state changed",
		zap.String("service", name),
		zap.Bool("enabled", enabled))
	return prior, nil
}

// serviceActive checks whether a service is currently running. is-active
// exits non-zero for inactive units, which is a state, not a failure.
func (e *ExecCtl) serviceActive(ctx context.Context, name string) (bool, error) {
	out, err := e.run(ctx, e.serviceCmd, "is-active", name)
	state := strings.TrimSpace(out)
	if err != nil && state == "" {
		return false, err
	}
	return state == "active", nil
}

// LaunchCompanion implements Actuator. The app must resolve on PATH and is
// started detached; the daemon does not supervise it.
func (e *ExecCtl) LaunchCompanion(ctx context.Context, app string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := exec.LookPath(app)
	if err != nil {
		return fmt.Errorf("companion not found: %s", app)
	}

	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", app, err)
	}
	go cmd.Wait() // reap; exit status is the companion's own business

	e.logger.Info("companion launched", zap.String("app", app), zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (e *ExecCtl) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}
