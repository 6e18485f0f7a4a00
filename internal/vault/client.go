package vault

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/tool"
)

// Client runs client sub-commands for one job's connection settings.
// The executable is resolved on every operation.
type Client struct {
	conn    config.ConnectionConfig
	locator *tool.Locator
	runner  Runner
	log     io.Writer
	dir     string
	env     []string
	tempDir string
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLocator replaces the executable locator.
func WithLocator(l *tool.Locator) Option {
	return func(c *Client) { c.locator = l }
}

// WithLog sets the operation log. Command lines and failures are written to it.
func WithLog(w io.Writer) Option {
	return func(c *Client) { c.log = w }
}

// WithDir sets the working directory for client runs.
func WithDir(dir string) Option {
	return func(c *Client) { c.dir = dir }
}

// WithEnv adds environment variables for the checkout run.
func WithEnv(env []string) Option {
	return func(c *Client) { c.env = env }
}

// WithTempDir sets where report captures are written. Empty uses os.TempDir.
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

// New creates a Client for the given connection settings.
func New(conn config.ConnectionConfig, opts ...Option) *Client {
	c := &Client{
		conn:    conn,
		locator: &tool.Locator{Installations: tool.NewInstallations(conn.Installations)},
		runner:  &ExecRunner{Timeout: conn.Timeout},
		log:     io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = io.Discard
	}
	return c
}

// Connection returns the settings the client was created with.
func (c *Client) Connection() config.ConnectionConfig {
	return c.conn
}

func (c *Client) builder() (Builder, error) {
	exe, err := c.locator.Locate(c.conn.Vault)
	if err != nil {
		fmt.Fprintf(c.log, "ERROR: %v\n", err)
		return Builder{}, err
	}
	return Builder{Executable: exe, Conn: c.conn}, nil
}

const commandHint = "check the server, credentials, repository and path settings"

func (c *Client) run(ctx context.Context, op string, cmd Command, env []string, stdout io.Writer) error {
	fmt.Fprintf(c.log, "[%s] $ %s\n", c.dir, cmd)

	code, err := c.runner.Run(ctx, Invocation{
		Command: cmd,
		Dir:     c.dir,
		Env:     env,
		Stdout:  stdout,
		Stderr:  c.log,
	})
	if err != nil {
		fmt.Fprintf(c.log, "ERROR: %s: %v\n", op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if code != 0 {
		cerr := &CommandError{Operation: op, ExitCode: code, Hint: commandHint}
		fmt.Fprintf(c.log, "ERROR: %v\n", cerr)
		return cerr
	}
	return nil
}

// GetVersion checks out the folder version into workspace, streaming the
// client's output to the log.
func (c *Client) GetVersion(ctx context.Context, version, workspace string) error {
	b, err := c.builder()
	if err != nil {
		return err
	}
	return c.run(ctx, "Checkout", b.GetVersion(version, workspace), c.env, c.log)
}

// FolderProperties queries the current state of the repository path.
// Report problems are logged and yield a partial or empty state; only a
// missing executable or a failed run is returned as an error.
func (c *Client) FolderProperties(ctx context.Context) (FolderState, error) {
	b, err := c.builder()
	if err != nil {
		return FolderState{}, err
	}

	var state FolderState
	err = c.capture(ctx, "List object properties", b.ListObjectProperties(), "objectproperties-*.xml", func(f *os.File) {
		var perr error
		state, perr = ParseFolderProperties(f)
		if perr != nil {
			fmt.Fprintf(c.log, "WARNING: %v\n", perr)
		}
	})
	return state, err
}

// CountChanges returns how many history items exist between begin and end.
// An unreadable report counts as zero.
func (c *Client) CountChanges(ctx context.Context, begin, end time.Time) (int, error) {
	b, err := c.builder()
	if err != nil {
		return 0, err
	}

	n := 0
	err = c.capture(ctx, "Determine changes count", b.VersionHistory(begin, end), "changes-*.xml", func(f *os.File) {
		count, perr := changelog.CountItems(f)
		if perr != nil {
			fmt.Fprintf(c.log, "WARNING: %v\n", perr)
			return
		}
		n = count
	})
	return n, err
}

// CaptureHistory writes the raw history report between begin and end to w.
func (c *Client) CaptureHistory(ctx context.Context, begin, end time.Time, w io.Writer) error {
	b, err := c.builder()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := c.run(ctx, "Changelog", b.History(begin, end), nil, bw); err != nil {
		_ = bw.Flush()
		return err
	}
	return bw.Flush()
}

// capture runs cmd with stdout redirected to a temp file, then hands the
// rewound file to parse. The file is removed on every path.
func (c *Client) capture(ctx context.Context, op string, cmd Command, pattern string, parse func(*os.File)) error {
	f, err := os.CreateTemp(c.tempDir, pattern)
	if err != nil {
		return fmt.Errorf("%s: creating temp file: %w", op, err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := c.run(ctx, op, cmd, nil, f); err != nil {
		return err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		fmt.Fprintf(c.log, "WARNING: %s: rewinding report: %v\n", op, err)
		return nil
	}
	parse(f)
	return nil
}
