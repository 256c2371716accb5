package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"github.com/aatumaykin/iliassync/internal/config"
	"github.com/aatumaykin/iliassync/internal/downloader"
	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/pidfile"
	"github.com/aatumaykin/iliassync/internal/pipeline"
	"github.com/aatumaykin/iliassync/internal/rclone"
	"github.com/aatumaykin/iliassync/internal/syncer"
	"github.com/aatumaykin/iliassync/internal/syncstate"
	"github.com/aatumaykin/iliassync/internal/toolrun"
)

const (
	defaultConfigFile = "config.toml"
	metricsNamespace  = "iliassync"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	fs         afero.Fs
	rclone     *rclone.Client
	downloader *downloader.Downloader
	planner    *syncer.Planner
	pipeline   *pipeline.Pipeline
}

// resolveConfigPath falls back to ./config.toml when it exists; otherwise
// the configuration comes from the environment alone.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadConfig loads .env, the config file and the overrides. Full
// validation is skipped for read-only commands that need no credentials.
func loadConfig(validate bool) (*config.Config, error) {
	if err := config.LoadEnvOptional(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if validate {
		if errs := cfg.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
		}
	}

	return cfg, nil
}

func newApp(validate bool) (*app, error) {
	cfg, err := loadConfig(validate)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	if err := fsys.MkdirAll(cfg.Workspace.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: cfg.Logging.Outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metricsNamespace, registry)

	runner := toolrun.NewExecRunner(log, m)
	rc := rclone.New(runner, fsys, rclone.Config{
		Binary: cfg.Upload.RcloneBinary,
		Remote: cfg.Upload.RemoteName,
	}, log)
	dl := downloader.New(runner, fsys, downloader.Config{
		Executable: cfg.Downloader.Executable,
		Username:   cfg.Downloader.Username,
		Password:   cfg.Downloader.Password,
		OutputDir:  cfg.Downloader.OutputDir,
		SyncURL:    cfg.Downloader.SyncURL,
		Jobs:       cfg.Downloader.Jobs,
		Rate:       cfg.Downloader.Rate,
	}, log)

	store := syncstate.NewStore(fsys, cfg.Sync.StateFile, log)
	planner, err := syncer.NewPlanner(fsys, store, cfg.Upload.RemotePath, log,
		syncer.WithExclude(cfg.Sync.Exclude...),
		syncer.WithMetrics(m))
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	pl := pipeline.New(dl, planner, rc, rc, pipeline.Config{
		LocalRoot:    cfg.Downloader.OutputDir,
		StateFile:    cfg.Sync.StateFile,
		UploadReport: cfg.Upload.ReportEnabled(),
	}, log, m)

	return &app{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		metrics:    m,
		fs:         fsys,
		rclone:     rc,
		downloader: dl,
		planner:    planner,
		pipeline:   pl,
	}, nil
}

func (a *app) close() {
	_ = a.log.Close()
}

func (a *app) releaseLock(lock *pidfile.File) {
	if err := lock.Release(); err != nil {
		a.log.Warn("failed to remove PID file", logger.Field{Key: "error", Value: err.Error()})
	}
}
