package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bianoble/vault-scm/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the merged configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration with the password masked",
	Long: `Merges the system, user and project configuration files and prints the
result. Set VAULT_SCM_NO_INHERIT=1 to use the project file alone. Use --verbose
to list the files that were read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfigLayers()
		if err != nil {
			return err
		}
		printLayers(res.Layers)

		data, err := yaml.Marshal(res.Config.Redacted())
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the merged configuration for errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfigLayers()
		if res != nil {
			printLayers(res.Layers)
		}

		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors {
				errorf("%s", e)
			}
			return &ExitError{Code: 1, Msg: fmt.Sprintf("%d configuration error(s)", len(verr.Errors))}
		}
		if err != nil {
			return err
		}

		if _, err := res.Config.Connection(); err != nil {
			return err
		}
		if res.Config.PasswordEnv != "" {
			if _, ok := os.LookupEnv(res.Config.PasswordEnv); !ok {
				warn("password_env %s is not set", res.Config.PasswordEnv)
			}
		}

		success("Configuration is valid.")
		return nil
	},
}

var configSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Prompt for the password and store it in the project config",
	Long: `Reads the password from the terminal without echo and stores it in the
project configuration file, replacing any password_env setting. The file is
rewritten readable by the owner only; comments are not preserved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword()
		if err != nil {
			return err
		}
		if err := config.Edit(configPath, func(c *config.Config) {
			c.Password = config.Secret(pw)
			c.PasswordEnv = ""
		}); err != nil {
			return err
		}
		success("Password stored in %s.", configPath)
		return nil
	},
}

func printLayers(layers []config.ConfigLayerInfo) {
	for _, l := range layers {
		status := "not found"
		switch {
		case l.Err != nil:
			status = red(l.Err.Error())
		case l.Loaded:
			status = "loaded"
		}
		detail("%-8s %s (%s)", l.Level, l.Path, status)
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetPasswordCmd)
	rootCmd.AddCommand(configCmd)
}
