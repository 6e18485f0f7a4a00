package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/state"
	"github.com/bianoble/vault-scm/internal/tool"
	"github.com/bianoble/vault-scm/internal/vault"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// loadConfigLayers reads, merges and validates the config layers.
func loadConfigLayers() (*config.HierarchicalResult, error) {
	res, err := config.LoadHierarchical(config.DiscoverOptions{
		ProjectPath: configPath,
		NoInherit:   config.EnvNoInherit(),
	})
	if err != nil {
		return res, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return res, nil
}

// loadConnection reads the config and resolves the connection settings.
func loadConnection() (config.ConnectionConfig, error) {
	res, err := loadConfigLayers()
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	return res.Config.Connection()
}

// loadHistory reads the build history. Returns an empty history if missing.
func loadHistory() (*state.History, error) {
	h, err := state.LoadOrNew(historyPath)
	if err != nil {
		return nil, fmt.Errorf("loading history %s: %w", historyPath, err)
	}
	return h, nil
}

// saveHistory writes the build history atomically.
func saveHistory(h *state.History) error {
	return state.Save(historyPath, h)
}

// workspaceDir returns the checkout directory: --workspace, else the
// directory containing the config file.
func workspaceDir() (string, error) {
	p := workspacePath
	if p == "" {
		p = filepath.Dir(configPath)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving workspace: %w", err)
	}
	return abs, nil
}

// newLocator resolves client installations for the --node build node.
func newLocator(conn config.ConnectionConfig) *tool.Locator {
	return &tool.Locator{
		Installations: tool.NewInstallations(conn.Installations),
		Node:          nodeName,
	}
}

// newClient creates a client that runs in dir and logs to log.
// env is added to the checkout run's environment.
func newClient(conn config.ConnectionConfig, dir string, env map[string]string, log io.Writer) *vault.Client {
	return vault.New(conn,
		vault.WithLocator(newLocator(conn)),
		vault.WithDir(dir),
		vault.WithEnv(envList(env)),
		vault.WithLog(log),
	)
}

// envList flattens variables into sorted KEY=value pairs.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// buildLog is where checkout output and progress go.
func buildLog() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}

// diagnosticLog keeps stdout clean for commands whose output is parsed.
// Client output is shown on stderr in verbose mode only.
func diagnosticLog() io.Writer {
	if verbose {
		return os.Stderr
	}
	return io.Discard
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Println("  " + gray(fmt.Sprintf(format, args...)))
	}
}

// success prints a highlighted line unless quiet mode is active.
func success(format string, args ...any) {
	info("%s", green(fmt.Sprintf(format, args...)))
}

// warn prints a warning to stderr.
func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s "+format+"\n", append([]any{yellow("warning:")}, args...)...)
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s "+format+"\n", append([]any{red("error:")}, args...)...)
}
