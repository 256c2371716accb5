// Package toolrun executes the external command line tools the pipeline
// drives and turns their failures into *ToolError.
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
)

const maskedValue = "***"

// maxStderr bounds the stderr excerpt kept in a ToolError.
const maxStderr = 4096

// Command describes one invocation of an external tool.
type Command struct {
	Tool    string // short name used in logs and metrics
	Path    string
	Args    []string
	Dir     string
	Secrets []string // values masked wherever the command line is printed
	// Interactive connects the terminal; output is still captured.
	Interactive bool
}

// String renders the command line shell-quoted with secrets masked.
func (c Command) String() string {
	parts := append([]string{c.Path}, c.Args...)
	return Mask(shellescape.QuoteCommand(parts), c.Secrets...)
}

// Result holds the captured output of a successful run.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ToolError reports a tool that could not be started or exited non-zero.
type ToolError struct {
	Tool     string
	Command  string
	ExitCode int // -1 when the process never ran or was killed
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d): %v", e.Tool, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(log *logger.Logger, m *metrics.Metrics) *ExecRunner {
	return &ExecRunner{logger: log, metrics: m}
}

// Run executes cmd and waits for it. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	line := cmd.String()
	r.logger.Info("running external tool",
		logger.Field{Key: "tool", Value: cmd.Tool},
		logger.Field{Key: "command", Value: line})

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	if cmd.Interactive {
		c.Stdin = os.Stdin
		c.Stdout = io.MultiWriter(os.Stdout, &stdout)
		c.Stderr = io.MultiWriter(os.Stderr, &stderr)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	result := Result{
		Stdout:   Mask(stdout.String(), cmd.Secrets...),
		Stderr:   Mask(stderr.String(), cmd.Secrets...),
		Duration: duration,
	}

	if err != nil {
		r.metrics.RecordTool(cmd.Tool, metrics.StatusFailed, duration)
		toolErr := &ToolError{
			Tool:     cmd.Tool,
			Command:  line,
			ExitCode: exitCode(err),
			Stderr:   excerpt(result.Stderr),
			Err:      err,
		}
		r.logger.Warn("external tool failed",
			logger.Field{Key: "tool", Value: cmd.Tool},
			logger.Field{Key: "error", Value: toolErr.Error()},
			logger.Field{Key: "exit_code", Value: toolErr.ExitCode},
			logger.Field{Key: "duration", Value: duration.String()})
		return result, toolErr
	}

	r.metrics.RecordTool(cmd.Tool, metrics.StatusOK, duration)
	r.logger.Info("external tool finished",
		logger.Field{Key: "tool", Value: cmd.Tool},
		logger.Field{Key: "duration", Value: duration.String()})
	if out := strings.TrimSpace(result.Stdout); out != "" {
		r.logger.Debug("external tool output",
			logger.Field{Key: "tool", Value: cmd.Tool},
			logger.Field{Key: "stdout", Value: out})
	}

	return result, nil
}

// Mask replaces every non-empty secret in s.
func Mask(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		// quoted form first: it differs when the secret has shell metacharacters
		if quoted := shellescape.Quote(secret); quoted != secret {
			s = strings.ReplaceAll(s, quoted, maskedValue)
		}
		s = strings.ReplaceAll(s, secret, maskedValue)
	}
	return s
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func excerpt(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) <= maxStderr {
		return stderr
	}
	return "..." + stderr[len(stderr)-maxStderr:]
}
