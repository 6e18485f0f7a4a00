package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bianoble/vault-scm/internal/engine"
	"github.com/bianoble/vault-scm/internal/state"
	"github.com/spf13/cobra"
)

var (
	checkoutFolderVersion string
	checkoutChangeLog     string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check out the repository folder and record a new build",
	Long: `Starts a new build, brings the workspace to the latest folder version (or
the version given with --folder-version / SPECIFIC_VAULT_FOLDER_VERSION), and
records the change log and folder version in the build history.

When the folder version matches the previous build's, the client is not run.`,
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
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating workspace: %w", err)
		}

		target := checkoutFolderVersion
		if target == "" {
			target = os.Getenv(engine.EnvSpecificFolderVersion)
		}
		var params map[string]string
		if target != "" {
			params = map[string]string{engine.EnvSpecificFolderVersion: target}
		}

		policy := engine.ExportPolicy(conn)
		var env map[string]string
		if last := h.Last(); last != nil {
			env = engine.EnvVars(h, last, policy)
		}

		b := h.Start(time.Now(), params)
		info("Build #%d %s", b.Number, gray(b.ID))

		changeLog := checkoutChangeLog
		if changeLog == "" && target == "" {
			changeLog = state.ChangeLogPath(historyPath, b.Number)
			if err := os.MkdirAll(filepath.Dir(changeLog), 0755); err != nil {
				return fmt.Errorf("creating build directory: %w", err)
			}
		}

		eng := &engine.CheckoutEngine{
			Client:       newClient(conn, dir, env, buildLog()),
			Log:          buildLog(),
			TrackDeletes: conn.TrackDeletes,
			EnvPolicy:    policy,
			OnPhase: func(p engine.Phase) {
				detail("phase: %s", p)
			},
		}

		res, runErr := eng.Checkout(cmd.Context(), h, b, engine.CheckoutOptions{
			Workspace:     dir,
			FolderVersion: target,
			ChangeLogFile: changeLog,
		})

		b.Result = state.ResultSuccess
		if runErr != nil {
			b.Result = state.ResultFailure
		}
		if err := saveHistory(h); err != nil {
			return fmt.Errorf("saving history: %w", err)
		}
		if runErr != nil {
			return fmt.Errorf("build #%d failed: %w", b.Number, runErr)
		}

		switch {
		case res.Unchanged:
			success("Build #%d: folder version %s unchanged.", b.Number, res.Target)
		case res.Changes.IsEmpty():
			success("Build #%d: checked out folder version %s.", b.Number, res.Target)
		default:
			success("Build #%d: checked out folder version %s (%d changes).", b.Number, res.Target, res.Changes.Len())
		}
		for _, e := range changeEntries(res.Changes) {
			detail("%s", e)
		}
		return nil
	},
}

func init() {
	checkoutCmd.Flags().StringVar(&checkoutFolderVersion, "folder-version", "", "check out this folder version instead of the latest")
	checkoutCmd.Flags().StringVar(&checkoutChangeLog, "changelog", "", "write the raw history report to this file (default: builds/<n>/changelog.xml next to the history)")
	rootCmd.AddCommand(checkoutCmd)
}
