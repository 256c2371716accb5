// Package rclone uploads files to a configured rclone remote.
package rclone

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/toolrun"
)

const toolName = "rclone"

// Providers supported by CreateRemote.
var Providers = []string{"drive", "dropbox", "onedrive"}

// Config selects the rclone binary and remote.
type Config struct {
	Binary string // defaults to "rclone" on PATH
	Remote string // remote name without the trailing colon
}

// Client drives the rclone CLI.
type Client struct {
	runner toolrun.Runner
	fs     afero.Fs
	binary string
	remote string
	logger *logger.Logger
}

// New creates a client. fsys holds the temporary file lists handed to
// rclone, so it must be the filesystem rclone itself sees.
func New(runner toolrun.Runner, fsys afero.Fs, cfg Config, log *logger.Logger) *Client {
	binary := cfg.Binary
	if binary == "" {
		binary = toolName
	}
	return &Client{
		runner: runner,
		fs:     fsys,
		binary: binary,
		remote: strings.TrimSuffix(cfg.Remote, ":"),
		logger: log,
	}
}

// Remote returns the remote name.
func (c *Client) Remote() string {
	return c.remote
}

// Target returns the rclone path for p on the remote.
func (c *Client) Target(p string) string {
	return c.remote + ":" + p
}

// UploadFiles copies exactly files (relative to localRoot) to destination
// on the remote, skipping files that already exist there. The list is passed
// with --files-from-raw so names starting with '#' or ';' or with surrounding
// blanks are taken verbatim; names containing a line break cannot be listed
// and are copied one by one.
func (c *Client) UploadFiles(ctx context.Context, localRoot string, files []string, destination string) error {
	listed := make([]string, 0, len(files))
	var single []string
	for _, f := range files {
		if strings.ContainsAny(f, "\r\n") {
			single = append(single, f)
			continue
		}
		listed = append(listed, f)
	}

	if len(listed) > 0 {
		if err := c.copyListed(ctx, localRoot, listed, destination); err != nil {
			return err
		}
	}
	for _, f := range single {
		_, err := c.runner.Run(ctx, c.command(
			"copyto", "--ignore-existing",
			filepath.Join(localRoot, filepath.FromSlash(f)),
			c.Target(path.Join(destination, f)),
		))
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) copyListed(ctx context.Context, localRoot string, files []string, destination string) error {
	list, err := afero.TempFile(c.fs, "", "iliassync-files-*.txt")
	if err != nil {
		return fmt.Errorf("create file list: %w", err)
	}
	listPath := list.Name()
	defer func() {
		if err := c.fs.Remove(listPath); err != nil {
			c.logger.Warn("failed to remove file list", logger.Field{Key: "file", Value: listPath})
		}
	}()

	if _, err := list.WriteString(strings.Join(files, "\n") + "\n"); err != nil {
		_ = list.Close()
		return fmt.Errorf("write file list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("write file list: %w", err)
	}

	_, err = c.runner.Run(ctx, c.command(
		"copy", "--ignore-existing", "--files-from-raw", listPath,
		localRoot, c.Target(destination),
	))
	return err
}

// CopyFile copies a single local file into destination on the remote.
func (c *Client) CopyFile(ctx context.Context, localFile, destination string) error {
	_, err := c.runner.Run(ctx, c.command("copy", localFile, c.Target(destination)))
	return err
}

// ListRemotes returns the configured remote names without trailing colons.
func (c *Client) ListRemotes(ctx context.Context) ([]string, error) {
	res, err := c.runner.Run(ctx, c.command("listremotes"))
	if err != nil {
		return nil, err
	}
	var remotes []string
	for _, f := range strings.Fields(res.Stdout) {
		remotes = append(remotes, strings.TrimSuffix(f, ":"))
	}
	return remotes, nil
}

// CheckRemote fails unless the configured remote exists.
func (c *Client) CheckRemote(ctx context.Context) error {
	remotes, err := c.ListRemotes(ctx)
	if err != nil {
		return fmt.Errorf("list rclone remotes: %w", err)
	}
	if !slices.Contains(remotes, c.remote) {
		return fmt.Errorf("rclone remote %q is not configured (run \"iliassync remote create\" or \"%s config\")", c.remote, c.binary)
	}
	return nil
}

// CreateRemote creates the configured remote for provider. Client
// credentials are optional; rclone falls back to its shared defaults.
func (c *Client) CreateRemote(ctx context.Context, provider, clientID, clientSecret string) error {
	if !slices.Contains(Providers, provider) {
		return fmt.Errorf("unsupported provider %q (supported: %s)", provider, strings.Join(Providers, ", "))
	}

	cmd := c.command("config", "create", c.remote, provider)
	cmd.Interactive = true
	if clientID != "" && clientSecret != "" {
		c.logger.Info("using the provided client id and client secret")
		cmd.Args = append(cmd.Args, "client_id", clientID, "client_secret", clientSecret)
		cmd.Secrets = []string{clientSecret}
	} else {
		c.logger.Warn("client id and client secret are not set, using rclone defaults")
	}

	_, err := c.runner.Run(ctx, cmd)
	return err
}

func (c *Client) command(args ...string) toolrun.Command {
	return toolrun.Command{Tool: toolName, Path: c.binary, Args: args}
}
