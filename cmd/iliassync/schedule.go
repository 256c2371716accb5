package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/iliassync/internal/config"
	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/scheduler"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the configured triggers and their next fire times",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		tasks, err := plannedTasks(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No triggers configured.")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%-32s next: %s\n", t.Name, t.Next.Format(time.RFC3339))
		}
		return nil
	},
}

// plannedTasks registers the configured triggers on an idle scheduler to
// compute their next fire times.
func plannedTasks(cfg *config.Config) ([]scheduler.TaskInfo, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	specs, err := cfg.Triggers()
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(logger.Discard(), scheduler.WithLocation(loc))
	noop := func(context.Context) error { return nil }
	for _, spec := range specs {
		if _, err := sched.Add(scheduler.Task{Trigger: spec, Action: noop}); err != nil {
			return nil, err
		}
	}
	return sched.Tasks(), nil
}
