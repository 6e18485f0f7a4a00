package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	initForce          bool
	initPromptPassword bool
)

// initTemplate is the default vault-scm.yaml scaffold.
// The single %s is replaced by the password line.
const initTemplate = `# vault-scm configuration
version: 1

server: vault.example.com
user: builder
%s
# password_env: VAULT_PASSWORD   # read the password from this variable instead
repository: Default Repository
path: $/project/trunk
# ssl: true

# Checkout behaviour
# merge: overwrite              # automatic, overwrite, later
# file_time: modification       # checkin, current, modification
# use_working_folder: true
# make_writable: false
# verbose: false
# timeout: 30m                  # kill a stuck client; empty waits forever

# Client installations. Without 'vault' the default install locations are probed.
# vault: default
# installations:
#   - name: default
#     location: C:\Program Files (x86)\SourceGear\Vault Client\vault.exe
#     nodes:
#       build-agent-2: D:\Tools\Vault\vault.exe

# env_export: always            # always, non-empty
# history:
#   track_deletes: false
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter vault-scm.yaml configuration",
	Long: `Creates a vault-scm.yaml file in the current directory with a commented
template of every setting.

Use --prompt-password to type the password on the terminal; it is stored in
the file, which is then readable by the owner only. Use --force to overwrite
an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		passwordLine := "# password: secret"
		mode := os.FileMode(0644)
		if initPromptPassword {
			pw, err := readPassword()
			if err != nil {
				return err
			}
			passwordLine, err = yamlField("password", pw)
			if err != nil {
				return err
			}
			mode = 0600
		}

		content := fmt.Sprintf(initTemplate, passwordLine)
		if err := os.WriteFile(outPath, []byte(content), mode); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Edit the file to point at your server and repository path")
		info("  2. Run 'vault-scm config validate' to check it")
		info("  3. Run 'vault-scm checkout' to fetch the folder into the workspace")
		return nil
	},
}

// readPassword reads a password from the terminal without echo.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--prompt-password requires a terminal")
	}
	fmt.Fprint(os.Stderr, "Vault password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// yamlField renders key: value with the value quoted as YAML requires.
func yamlField(key, value string) (string, error) {
	data, err := yaml.Marshal(map[string]string{key: value})
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().BoolVar(&initPromptPassword, "prompt-password", false, "prompt for the password and store it in the file")
	rootCmd.AddCommand(initCmd)
}
