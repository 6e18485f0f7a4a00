package cmd

import (
	"fmt"

	"github.com/bianoble/vault-scm/internal/tool"
	"github.com/spf13/cobra"
)

var installationsCmd = &cobra.Command{
	Use:   "installations",
	Short: "List client installations and the location used on this node",
	Long: `Lists the configured client installations with their location for --node,
and shows which executable the job would run. Without a selected installation
the default locations are probed in order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := loadConnection()
		if err != nil {
			return err
		}

		loc := newLocator(conn)
		names := loc.Installations.Names()
		if len(names) == 0 {
			info("No installations configured.")
		} else {
			fmt.Printf("%-20s %s\n", "NAME", "LOCATION")
			for _, name := range names {
				inst, _ := loc.Installations.Get(name)
				marker := " "
				if name == conn.Vault {
					marker = "*"
				}
				fmt.Printf("%s%-19s %s\n", marker, name, tool.ForNode(inst, nodeName))
			}
		}

		info("")
		path, err := loc.Locate(conn.Vault)
		if err != nil {
			return err
		}
		success("Using %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installationsCmd)
}
