package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/iliassync/internal/config"
	"github.com/aatumaykin/iliassync/internal/syncstate"
)

func TestCommandStructure(t *testing.T) {
	want := []string{"version", "serve", "run", "status", "schedule", "remote"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}

	if serveCmd.Flags().Lookup("force") == nil {
		t.Error("serve should have a --force flag")
	}
	if rootCmd.PersistentFlags().ShorthandLookup("c") == nil {
		t.Error("root should have a -c shorthand for --config")
	}
}

func TestScheduleCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[workspace]
data_dir = "` + filepath.ToSlash(dir) + `"

[schedule]
times = "06:00 18:30"
once = ["2099-01-01T00:00:00Z"]
timezone = "UTC"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"schedule", "--config", path, "--env-file", filepath.Join(dir, "none.env")})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath, envFile = "", ".env"
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"daily@06:00:00", "daily@18:30:00", "once@2099-01-01T00:00:00Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("output should list %s, got:\n%s", want, got)
		}
	}
	if strings.Index(got, "once@") < strings.Index(got, "daily@18:30:00") {
		t.Errorf("tasks should be ordered by next fire time, got:\n%s", got)
	}
}

func TestPlannedTasksRejectsBadTrigger(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.Times = "7 o'clock"

	if _, err := plannedTasks(cfg); err == nil {
		t.Error("expected a configuration error")
	}
}

func TestPrintStatus(t *testing.T) {
	state := syncstate.New()
	state.Commit([]string{"a/b.txt"}, time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local))
	state.Commit([]string{"a/c.txt", "d.pdf"}, time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printStatus(cmd, "data/ilias_upload_report.json", state, 1)

	got := out.String()
	if !strings.Contains(got, "Synced files: 3") {
		t.Errorf("missing synced count:\n%s", got)
	}
	if !strings.Contains(got, "19/10/2026, 09:00:00  2 file(s)") {
		t.Errorf("missing newest event:\n%s", got)
	}
	if strings.Contains(got, "18/10/2026") {
		t.Errorf("limit should hide older events:\n%s", got)
	}
}

func TestNeedsInitialRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	a := &app{cfg: config.Default(), fs: fsys}
	defer func() { serveForce = false }()

	if ok, reason := needsInitialRun(a); !ok || reason != "output directory missing" {
		t.Errorf("missing output dir should trigger a run, got %v %q", ok, reason)
	}

	if err := fsys.MkdirAll(a.cfg.Downloader.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if ok, _ := needsInitialRun(a); ok {
		t.Error("existing output dir should not trigger a run")
	}

	serveForce = true
	if ok, reason := needsInitialRun(a); !ok || reason != "forced" {
		t.Errorf("--force should trigger a run, got %v %q", ok, reason)
	}
}
