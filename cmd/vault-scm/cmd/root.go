package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath    string
	historyPath   string
	workspacePath string
	nodeName      string
	verbose       bool
	quiet         bool
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "vault-scm",
	Short: "SourceGear Vault checkout and change detection for builds",
	Long: `vault-scm checks out a SourceGear Vault repository folder into a build
workspace, decides whether the folder changed since the last build, and keeps
a history of every build with its change log and folder version.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vault-scm %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "vault-scm.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "vault-scm.history", "path to build history")
	rootCmd.PersistentFlags().StringVar(&workspacePath, "workspace", "", "checkout directory (default: config file directory)")
	rootCmd.PersistentFlags().StringVar(&nodeName, "node", "", "build node name for installation locations")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

// ExitError ends the process with Code. An empty Msg prints nothing.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		var ee *ExitError
		if !errors.As(err, &ee) || ee.Msg != "" {
			errorf("%v", err)
		}
		return err
	}
	return nil
}
