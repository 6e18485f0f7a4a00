package cmd

import (
	"fmt"

	"github.com/bianoble/vault-scm/internal/state"
	"github.com/spf13/cobra"
)

var buildsKeep int

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List recorded builds",
	Long: `Lists every build in the history with its start time, result, checked out
folder version and number of change entries.

With --keep N, all but the newest N builds are removed together with their
change log files. Running builds and the build that polls compare against are
always kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := loadHistory()
		if err != nil {
			return err
		}

		if buildsKeep > 0 {
			dropped := h.Prune(buildsKeep)
			for _, n := range dropped {
				if err := state.RemoveBuildFiles(historyPath, n); err != nil {
					warn("%v", err)
				}
			}
			if len(dropped) > 0 {
				if err := saveHistory(h); err != nil {
					return fmt.Errorf("saving history: %w", err)
				}
				info("Removed %d build(s).", len(dropped))
			}
		}

		if len(h.Builds) == 0 {
			info("No builds recorded.")
			return nil
		}

		fmt.Printf("%-6s %-20s %-8s %-10s %s\n", "BUILD", "STARTED", "RESULT", "VERSION", "CHANGES")
		for _, b := range h.Builds {
			version := b.Marker.Version()
			if version == "" {
				version = "-"
			}
			fmt.Printf("%-6d %-20s %-8s %-10s %d\n",
				b.Number, b.Started.Local().Format("2006-01-02 15:04:05"), resultLabel(b.Result), version, b.Changes.Len())
			detail("id %s", b.ID)
		}
		return nil
	},
}

// resultLabel colors a build result. Padding is applied to the plain text
// first so columns line up with color enabled.
func resultLabel(r state.Result) string {
	s := fmt.Sprintf("%-8s", r)
	switch r {
	case state.ResultSuccess:
		return green(s)
	case state.ResultFailure:
		return red(s)
	default:
		return yellow(s)
	}
}

func init() {
	buildsCmd.Flags().IntVar(&buildsKeep, "keep", 0, "remove all but the newest N builds")
	rootCmd.AddCommand(buildsCmd)
}
