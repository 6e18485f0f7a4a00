package cmd

import (
	"fmt"
	"os"

	"github.com/bianoble/vault-scm/internal/engine"
	"github.com/spf13/cobra"
)

var pollExitCode bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Report whether the folder changed since the last build",
	Long: `Compares the live folder version with the one recorded by the last build and
prints BUILD_NOW or NO_CHANGES. Builds without a recorded version fall back to
counting history items since the last build date.

With --exit-code, NO_CHANGES exits with status 2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := loadConnection()
		if err != nil {
			return err
		}

		h, err := loadHistory()
		if err != nil {
			return err
		}

		dir, err := workspaceDir()
		if err != nil {
			return err
		}
		if _, err := os.Stat(dir); err != nil {
			// Nothing checked out yet; run from the current directory.
			dir = ""
		}

		log := diagnosticLog()
		eng := &engine.PollEngine{
			Client: newClient(conn, dir, nil, log),
			Log:    log,
		}

		result, err := eng.Poll(cmd.Context(), h)
		if err != nil {
			return fmt.Errorf("polling: %w", err)
		}

		fmt.Println(result)
		if pollExitCode && result == engine.NoChanges {
			return &ExitError{Code: 2}
		}
		return nil
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollExitCode, "exit-code", false, "exit with status 2 when there are no changes")
	rootCmd.AddCommand(pollCmd)
}
