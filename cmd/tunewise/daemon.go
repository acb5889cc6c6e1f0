package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/agent"
	"github.com/tunewise/tunewise/internal/applier"
	"github.com/tunewise/tunewise/internal/arbiter"
	"github.com/tunewise/tunewise/internal/audit"
	"github.com/tunewise/tunewise/internal/catalog"
	"github.com/tunewise/tunewise/internal/config"
	"github.com/tunewise/tunewise/internal/controlplane"
	"github.com/tunewise/tunewise/internal/learner"
	"github.com/tunewise/tunewise/internal/ledger"
	"github.com/tunewise/tunewise/internal/metrics"
	"github.com/tunewise/tunewise/internal/orchestrator"
	"github.com/tunewise/tunewise/internal/scheduler"
	"github.com/tunewise/tunewise/internal/sensor"
	"github.com/tunewise/tunewise/internal/store"
)

var configPath string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the tunewise daemon",
	Long:  `Starts the daemon: the optimization loop plus the loopback HTTP API.`,
	RunE:  runDaemon,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(homeDir, ".tunewise", "config.yaml")

	daemonCmd.Flags().StringVar(&configPath, "config", defaultConfig, "Path to configuration file")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("starting tunewise daemon",
		zap.String("version", version),
		zap.String("listen", cfg.Server.Listen))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	st, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}
	defer st.Close()

	cat, err := loadCatalog(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("recipes", cat.Len()))

	act, err := buildActuator(cfg, logger)
	if err != nil {
		logger.Fatal("actuator initialization failed", zap.Error(err))
	}
	logger.Info("actuator ready", zap.String("mode", act.Name()))

	// Agents share the learning parameters and the actuator.
	lp := agent.LearnParams{Alpha: cfg.Learning.Alpha, Delta: cfg.Learning.Delta}
	registry := agent.NewRegistry(logger)
	for _, a := range []agent.TaskAgent{
		agent.NewGaming(lp, act, logger),
		agent.NewDevelopment(lp, act, logger),
		agent.NewMedia(lp, act, logger),
	} {
		if err := registry.Register(a); err != nil {
			logger.Fatal("agent registration failed",
				zap.String("agent", a.Name()), zap.Error(err))
		}
	}

	ln := learner.New(registry, st, logger)
	if err := ln.RestoreAll(); err != nil {
		logger.Fatal("knowledge restore failed", zap.Error(err))
	}

	// Snapshot pipeline
	sensorReg := sensor.DefaultRegistry(cfg.Collection.TopProcesses, logger)
	provider := sensor.NewProvider(sensorReg, logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	snap, err := provider.Capture(initCtx)
	initCancel()
	if err != nil {
		logger.Fatal("initial snapshot failed", zap.Error(err))
	}
	registry.InitializeAll(snap)

	// Control loop
	led := ledger.New()
	orch := orchestrator.New(registry,
		cfg.Reasoning.AgentTimeout.Duration,
		cfg.Reasoning.MaxConsecutiveTimeouts, logger)
	arb := arbiter.New(cfg.Arbiter.MinConfidence, led, logger)
	ap := applier.New(act, st, cfg.Actuator.Timeout.Duration, logger)
	recorder := audit.NewRecorder(st)
	m := metrics.New()

	schedCfg := &scheduler.Config{
		ActiveInterval:     cfg.Collection.ActiveInterval.Duration,
		BackgroundInterval: cfg.Collection.BackgroundInterval.Duration,
	}
	sched := scheduler.New(provider, cat, orch, arb, ap, led, recorder, m, schedCfg, logger)

	service := controlplane.NewService(st, cat, ap, ln, sched, provider, m, logger)
	server := controlplane.NewServer(service, cfg.Server.Listen, logger)

	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start(m)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			sched.Stop()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	sched.Stop()
	registry.ShutdownAll()
	ln.PersistAll()
	logger.Info("daemon stopped")
	return nil
}

// loadCatalog reads the recipe catalog, falling back to the built-in
// recipes when no file exists yet.
func loadCatalog(path string, logger *zap.Logger) (*catalog.Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("no catalog file, using built-in recipes", zap.String("path", path))
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func buildActuator(cfg *config.Config, logger *zap.Logger) (actuator.Actuator, error) {
	switch strings.ToLower(cfg.Actuator.Mode) {
	case "exec":
		return actuator.NewExecCtl(cfg.Actuator.StateDir, logger)
	default:
		return actuator.NewDryRun(logger), nil
	}
}

// initLogger creates a zap logger based on the configuration. Output goes
// to the console, plus a JSON log file when configured.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
