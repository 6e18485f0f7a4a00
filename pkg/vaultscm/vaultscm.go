// Package vaultscm provides the public Go library API for vault-scm.
//
// vault-scm checks out a SourceGear Vault repository folder into a build
// workspace, decides whether the folder changed since the last build, and
// records the change log and folder version of every build.
//
// # Basic Usage
//
//	client, err := vaultscm.New(vaultscm.Options{
//	    ConfigPath: "vault-scm.yaml",
//	    Workspace:  "/path/to/workspace",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Build only when the folder changed
//	result, err := client.Poll(ctx)
//	if result == vaultscm.BuildNow {
//	    checkout, err := client.Checkout(ctx, vaultscm.CheckoutOptions{})
//	}
package vaultscm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/engine"
	"github.com/bianoble/vault-scm/internal/state"
	"github.com/bianoble/vault-scm/internal/tool"
	"github.com/bianoble/vault-scm/internal/vault"
)

// SCM is what a build host drives.
type SCM interface {
	Checkout(ctx context.Context, opts CheckoutOptions) (*CheckoutResult, error)
	Poll(ctx context.Context) (PollResult, error)
	ParseHistory(path string) (*ChangeLogSet, error)
	EnvVars(buildNumber int) (map[string]string, error)
}

var _ SCM = (*Client)(nil)

// Options configures a vault-scm client.
type Options struct {
	// ConfigPath is the path to the job config. Default: "vault-scm.yaml".
	ConfigPath string

	// HistoryPath is the path to the build history. Default: "vault-scm.history"
	// next to the config file.
	HistoryPath string

	// Workspace is the checkout directory. If empty, defaults to the
	// directory containing ConfigPath.
	Workspace string

	// Node selects per-node installation locations.
	Node string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// SystemConfigPath and UserConfigPath override the global layer paths.
	SystemConfigPath string
	UserConfigPath   string

	// Log receives client output and progress. Default: discarded.
	Log io.Writer

	// Runner replaces the subprocess runner.
	Runner Runner
}

// Client is the main entry point for the vault-scm library.
// The configuration is read once, in New.
type Client struct {
	conn        config.ConnectionConfig
	vault       *vault.Client
	vaultOpts   []vault.Option
	log         io.Writer
	workspace   string
	historyPath string
	now         func() time.Time
}

// New creates a new vault-scm Client.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "vault-scm.yaml"
	}

	abs, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	if opts.HistoryPath == "" {
		opts.HistoryPath = filepath.Join(filepath.Dir(abs), "vault-scm.history")
	}
	if opts.Workspace == "" {
		opts.Workspace = filepath.Dir(abs)
	}
	if opts.Log == nil {
		opts.Log = io.Discard
	}

	res, err := config.LoadHierarchical(config.DiscoverOptions{
		ProjectPath:      opts.ConfigPath,
		SystemConfigPath: opts.SystemConfigPath,
		UserConfigPath:   opts.UserConfigPath,
		NoInherit:        opts.NoInherit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", opts.ConfigPath, err)
	}
	conn, err := res.Config.Connection()
	if err != nil {
		return nil, err
	}

	vopts := []vault.Option{
		vault.WithLocator(&tool.Locator{
			Installations: tool.NewInstallations(conn.Installations),
			Node:          opts.Node,
		}),
		vault.WithDir(opts.Workspace),
		vault.WithLog(opts.Log),
	}
	if opts.Runner != nil {
		vopts = append(vopts, vault.WithRunner(opts.Runner))
	}

	return &Client{
		conn:        conn,
		vault:       vault.New(conn, vopts...),
		vaultOpts:   vopts,
		log:         opts.Log,
		workspace:   opts.Workspace,
		historyPath: opts.HistoryPath,
		now:         time.Now,
	}, nil
}

// Checkout starts a new build, brings the workspace to the target folder
// version and saves the build record. The record is saved even when the
// checkout fails.
func (c *Client) Checkout(ctx context.Context, opts CheckoutOptions) (*CheckoutResult, error) {
	h, err := state.LoadOrNew(c.historyPath)
	if err != nil {
		return nil, err
	}

	var params map[string]string
	if opts.FolderVersion != "" {
		params = map[string]string{engine.EnvSpecificFolderVersion: opts.FolderVersion}
	}

	policy := engine.ExportPolicy(c.conn)
	var env map[string]string
	if last := h.Last(); last != nil {
		env = engine.EnvVars(h, last, policy)
	}

	b := h.Start(c.now(), params)

	changeLog := opts.ChangeLogFile
	if changeLog == "" && opts.FolderVersion == "" {
		changeLog = state.ChangeLogPath(c.historyPath, b.Number)
		if err := os.MkdirAll(filepath.Dir(changeLog), 0755); err != nil {
			return nil, fmt.Errorf("creating build directory: %w", err)
		}
	}

	vopts := append(c.vaultOpts[:len(c.vaultOpts):len(c.vaultOpts)], vault.WithEnv(environ(env)))
	eng := &engine.CheckoutEngine{
		Client:       vault.New(c.conn, vopts...),
		Log:          c.log,
		Now:          c.now,
		TrackDeletes: c.conn.TrackDeletes,
		EnvPolicy:    policy,
	}
	res, runErr := eng.Checkout(ctx, h, b, engine.CheckoutOptions{
		Workspace:     c.workspace,
		FolderVersion: opts.FolderVersion,
		ChangeLogFile: changeLog,
	})

	b.Result = state.ResultSuccess
	if runErr != nil {
		b.Result = state.ResultFailure
	}
	out := &CheckoutResult{
		Build:     b.Number,
		BuildID:   b.ID,
		Version:   res.Target,
		Unchanged: res.Unchanged,
		Changes:   res.Changes,

		ChangeLogFile: b.ChangeLogFile,
	}

	if err := state.Save(c.historyPath, h); err != nil {
		return out, fmt.Errorf("saving history: %w", err)
	}
	return out, runErr
}

// environ turns exported variables into NAME=value pairs in name order.
func environ(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}

// Poll reports whether the folder changed since the last build.
func (c *Client) Poll(ctx context.Context) (PollResult, error) {
	h, err := state.LoadOrNew(c.historyPath)
	if err != nil {
		return NoChanges, err
	}
	eng := &engine.PollEngine{Client: c.vault, Log: c.log, Now: c.now}
	return eng.Poll(ctx, h)
}

// ParseHistory parses a captured history report. Malformed content is
// logged and yields the entries read so far.
func (c *Client) ParseHistory(path string) (*ChangeLogSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening change log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	set, perr := changelog.Parse(f, changelog.ParseOptions{TrackDeletes: c.conn.TrackDeletes})
	if perr != nil {
		fmt.Fprintf(c.log, "WARNING: %s: %v\n", path, perr)
	}
	return set, nil
}

// EnvVars returns the variables exported to the steps of a build.
// A build number of 0 selects the latest build.
func (c *Client) EnvVars(buildNumber int) (map[string]string, error) {
	h, err := state.LoadOrNew(c.historyPath)
	if err != nil {
		return nil, err
	}

	b := h.Last()
	if buildNumber != 0 {
		b = h.Get(buildNumber)
	}
	if b == nil {
		if buildNumber != 0 {
			return nil, fmt.Errorf("build #%d not found in %s", buildNumber, c.historyPath)
		}
		return map[string]string{engine.EnvFolderVersion: engine.VersionNotSet}, nil
	}
	return engine.EnvVars(h, b, engine.ExportPolicy(c.conn)), nil
}

// BrowseURL returns the base URL of the configured server.
func (c *Client) BrowseURL() string {
	return changelog.BrowseURL(c.conn.Server, c.conn.SSL)
}
