package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/pidfile"
	"github.com/aatumaykin/iliassync/internal/scheduler"
)

var serveForce bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled sync cycles until interrupted (main command)",
	Long: `Start the scheduler with the configured daily times and one-off instants.
Every firing downloads from ILIAS and uploads the files that were not
uploaded before. The first start (no output directory yet) or --force runs
one cycle immediately.

SIGINT/SIGTERM stop scheduling; a running cycle is allowed to finish.
A second signal exits at once.`,
	RunE: serveHandler,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveForce, "force", "f", false, "Run one sync cycle immediately on startup")
}

func serveHandler(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	lock, err := pidfile.Acquire(a.cfg.Workspace.DataDir)
	if err != nil {
		return err
	}
	defer a.releaseLock(lock)

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	specs, err := a.cfg.Triggers()
	if err != nil {
		return err
	}

	redacted := a.cfg.Redacted()
	log.Info("🚀 Starting iliassync",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "username", Value: redacted.Downloader.Username},
		logger.Field{Key: "output_dir", Value: redacted.Downloader.OutputDir},
		logger.Field{Key: "remote", Value: a.rclone.Target(redacted.Upload.RemotePath)},
		logger.Field{Key: "state_file", Value: redacted.Sync.StateFile},
		logger.Field{Key: "timezone", Value: loc.String()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.downloader.CheckExecutable(); err != nil {
		return err
	}
	if err := a.rclone.CheckRemote(ctx); err != nil {
		return err
	}
	if err := a.planner.Load(); err != nil {
		return err
	}

	sched := scheduler.New(log, scheduler.WithLocation(loc), scheduler.WithMetrics(a.metrics))
	for _, spec := range specs {
		if _, err := sched.Add(scheduler.Task{Trigger: spec, Action: a.pipeline.Action()}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", spec, err)
		}
	}

	finished := make(chan struct{})
	defer close(finished)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-finished:
			return
		}
		log.Info("🛑 Shutting down, waiting for running cycles (press Ctrl+C again to force)")
		cancel()

		select {
		case <-sigCh:
			log.Warn("forced shutdown")
			os.Exit(1)
		case <-finished:
		}
	}()

	// Use errgroup for concurrent goroutine lifecycle management.
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, a.cfg.Metrics.Listen, a.registry, log)
		})
	}

	if err := sched.Start(gctx); err != nil {
		return err
	}
	for _, task := range sched.Tasks() {
		log.Info("⏰ Scheduled sync",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "trigger", Value: task.Name},
			logger.Field{Key: "next", Value: task.Next})
	}

	if initial, reason := needsInitialRun(a); initial {
		g.Go(func() error {
			log.Info("running initial sync cycle", logger.Field{Key: "reason", Value: reason})
			if _, err := a.pipeline.Run(context.WithoutCancel(gctx)); err != nil {
				log.Warn("initial sync cycle failed", logger.Field{Key: "error", Value: err.Error()})
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		_ = sched.Stop()
		return sched.Wait(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("serve exited with error", err)
		return err
	}

	log.Info("✅ iliassync stopped")
	return nil
}

// needsInitialRun mirrors the first-start rule: run at once when nothing
// was downloaded yet, when forced, or when configured to.
func needsInitialRun(a *app) (bool, string) {
	if serveForce {
		return true, "forced"
	}
	if a.cfg.Schedule.RunOnStart {
		return true, "run_on_start"
	}
	if _, err := a.fs.Stat(a.cfg.Downloader.OutputDir); errors.Is(err, fs.ErrNotExist) {
		return true, "output directory missing"
	}
	return false, ""
}
