package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/iliassync/internal/pidfile"
	"github.com/aatumaykin/iliassync/internal/syncstate"
)

var statusLimit int

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync record",
	Long:  `Print how many files are recorded as uploaded and the most recent upload events.`,
	RunE:  statusHandler,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 5, "Number of recent upload events to show")
}

func statusHandler(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.planner.Snapshot()
	if err != nil {
		return err
	}

	if pid, err := pidfile.Read(a.cfg.Workspace.DataDir); err == nil && pidfile.IsRunning(pid) {
		fmt.Fprintf(cmd.OutOrStdout(), "Service:      running (pid %d)\n", pid)
	}
	printStatus(cmd, a.cfg.Sync.StateFile, state, statusLimit)
	return nil
}

func printStatus(cmd *cobra.Command, stateFile string, state *syncstate.State, limit int) {
	out := cmd.OutOrStdout()
	events := state.Events()

	fmt.Fprintf(out, "State file:   %s\n", stateFile)
	fmt.Fprintf(out, "Synced files: %d\n", state.Len())
	fmt.Fprintf(out, "Uploads:      %d\n", len(events))

	if len(events) == 0 {
		return
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	fmt.Fprintln(out, "\nRecent uploads:")
	for _, e := range events {
		fmt.Fprintf(out, "  %s  %d file(s)\n", e.Time.Format(syncstate.EventTimeLayout), e.NewFilesCount)
		for _, f := range e.NewFiles {
			fmt.Fprintf(out, "    %s\n", f)
		}
	}
}
