package cmd

import (
	"fmt"
	"strings"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/spf13/cobra"
)

var (
	changesBuild int
	changesFile  string
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show the change log of a build",
	Long: `Shows the change entries recorded by the latest build (or --build N), or
parses a captured history report with --file. Use --verbose to list the
affected files of every entry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var set *changelog.Set

		if changesFile != "" {
			trackDeletes := false
			if conn, err := loadConnection(); err == nil {
				trackDeletes = conn.TrackDeletes
			}
			var err error
			set, err = changelog.ParseFile(changesFile, changelog.ParseOptions{TrackDeletes: trackDeletes})
			if err != nil {
				if set.IsEmpty() {
					return err
				}
				warn("%v", err)
			}
		} else {
			h, err := loadHistory()
			if err != nil {
				return err
			}
			b := h.Last()
			if changesBuild != 0 {
				b = h.Get(changesBuild)
			}
			if b == nil {
				return fmt.Errorf("no build found in %s", historyPath)
			}
			set = b.Changes
		}

		if set.IsEmpty() {
			info("No changes.")
			return nil
		}

		for _, e := range set.Entries {
			info("%s", formatEntry(e))
			for _, f := range e.Files {
				detail("%-6s %s", f.EditType, f.Path)
			}
		}
		return nil
	},
}

// formatEntry renders one entry as a single summary line.
func formatEntry(e changelog.Entry) string {
	parts := []string{cyan(e.CommitID())}
	if e.Version != "" {
		parts = append(parts, "v"+e.Version)
	}
	if e.Author != "" {
		parts = append(parts, e.Author)
	}
	if ts := e.Timestamp(); !ts.IsZero() {
		parts = append(parts, ts.Format("2006-01-02 15:04"))
	}
	if c := strings.TrimSpace(e.Comment); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, "  ")
}

// changeEntries returns summary lines for every entry of set.
func changeEntries(set *changelog.Set) []string {
	if set.IsEmpty() {
		return nil
	}
	out := make([]string, 0, set.Len())
	for _, e := range set.Entries {
		out = append(out, formatEntry(e))
	}
	return out
}

func init() {
	changesCmd.Flags().IntVar(&changesBuild, "build", 0, "build number (default: latest)")
	changesCmd.Flags().StringVar(&changesFile, "file", "", "parse a captured history report instead")
	changesCmd.MarkFlagsMutuallyExclusive("build", "file")
	rootCmd.AddCommand(changesCmd)
}
