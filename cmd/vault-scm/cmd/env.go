package cmd

import (
	"fmt"
	"sort"

	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/engine"
	"github.com/spf13/cobra"
)

var envBuild int

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the variables exported to build steps",
	Long: `Prints VAULT_FOLDER_VERSION for the latest build (or --build N) as KEY=value
lines suitable for sourcing. Builds that recorded no folder version and no
changes inherit the value of the build before them; NOT_SET is printed when no
build has one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := config.ExportAlways
		if conn, err := loadConnection(); err == nil {
			policy = engine.ExportPolicy(conn)
		} else {
			detail("using default export policy: %v", err)
		}

		h, err := loadHistory()
		if err != nil {
			return err
		}

		b := h.Last()
		if envBuild != 0 {
			b = h.Get(envBuild)
			if b == nil {
				return fmt.Errorf("build #%d not found in %s", envBuild, historyPath)
			}
		}

		vars := map[string]string{engine.EnvFolderVersion: engine.VersionNotSet}
		if b != nil {
			vars = engine.EnvVars(h, b, policy)
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, vars[k])
		}
		return nil
	},
}

func init() {
	envCmd.Flags().IntVar(&envBuild, "build", 0, "build number (default: latest)")
	rootCmd.AddCommand(envCmd)
}
