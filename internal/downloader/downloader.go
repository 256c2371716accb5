// Package downloader runs KIT-ILIAS-downloader to mirror ILIAS courses into
// a local directory.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/afero"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/toolrun"
)

const toolName = "downloader"

// BinaryName is the executable's file name without platform suffix.
const BinaryName = "KIT-ILIAS-downloader"

// Config holds the downloader invocation settings.
type Config struct {
	Executable string // binary path, or a directory containing BinaryName
	Username   string
	Password   string
	OutputDir  string
	SyncURL    string
	Jobs       int
	Rate       int
}

// Downloader runs the external download tool.
type Downloader struct {
	runner toolrun.Runner
	fs     afero.Fs
	cfg    Config
	goos   string
	logger *logger.Logger
}

// New creates a downloader.
func New(runner toolrun.Runner, fsys afero.Fs, cfg Config, log *logger.Logger) *Downloader {
	return &Downloader{runner: runner, fs: fsys, cfg: cfg, goos: runtime.GOOS, logger: log}
}

// ExecutableFor returns the binary file name on goos.
func ExecutableFor(goos string) string {
	if goos == "windows" {
		return BinaryName + ".exe"
	}
	return BinaryName
}

// OutputDir returns the directory downloads are written to.
func (d *Downloader) OutputDir() string {
	return d.cfg.OutputDir
}

// ExecutablePath resolves the configured executable. A directory is
// searched for the platform binary.
func (d *Downloader) ExecutablePath() string {
	path := d.cfg.Executable
	if info, err := d.fs.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, ExecutableFor(d.goos))
	}
	return path
}

// CheckExecutable verifies the binary exists and, off Windows, is
// executable.
func (d *Downloader) CheckExecutable() error {
	path := d.ExecutablePath()
	info, err := d.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s not found at %s (download a release from https://github.com/FliegendeWurst/KIT-ILIAS-downloader/releases)", BinaryName, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if d.goos != "windows" && info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}

	d.logger.Info("downloader executable found", logger.Field{Key: "path", Value: path})
	return nil
}

// Args returns the command line arguments for one download run.
func (d *Downloader) Args() []string {
	args := []string{
		"-U", d.cfg.Username,
		"-P", d.cfg.Password,
		"-o", d.cfg.OutputDir,
		"--jobs", strconv.Itoa(d.cfg.Jobs),
		"--rate", strconv.Itoa(d.cfg.Rate),
	}
	if d.cfg.SyncURL != "" {
		args = append(args, "--sync-url", d.cfg.SyncURL)
	}
	return args
}

// Download mirrors ILIAS into the output directory.
func (d *Downloader) Download(ctx context.Context) error {
	d.logger.Info("starting ILIAS download",
		logger.Field{Key: "output_dir", Value: d.cfg.OutputDir},
		logger.Field{Key: "jobs", Value: d.cfg.Jobs},
		logger.Field{Key: "rate", Value: d.cfg.Rate})

	_, err := d.runner.Run(ctx, toolrun.Command{
		Tool:    toolName,
		Path:    d.ExecutablePath(),
		Args:    d.Args(),
		Secrets: []string{d.cfg.Password},
	})
	if err != nil {
		return fmt.Errorf("ILIAS download: %w", err)
	}
	return nil
}
