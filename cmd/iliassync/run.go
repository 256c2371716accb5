package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/iliassync/internal/pidfile"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync cycle now and exit",
	Long: `Download from ILIAS, upload every file that was not uploaded before and
record it in the state file. Nothing is scheduled.`,
	RunE: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	lock, err := pidfile.Acquire(a.cfg.Workspace.DataDir)
	if err != nil {
		return err
	}
	defer a.releaseLock(lock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.downloader.CheckExecutable(); err != nil {
		return err
	}
	if err := a.rclone.CheckRemote(ctx); err != nil {
		return err
	}

	res, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d new file(s) in %s (run %s)\n",
		res.Uploaded, res.Duration.Round(time.Millisecond), res.RunID)
	return nil
}
