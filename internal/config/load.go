package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a vault-scm.yaml configuration file.
func Load(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// parseFile reads a configuration file without validating it.
// Global layers are partial on their own and only validated after merging.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a configuration file atomically using a temp file and rename.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing temp config %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp config to %s: %w", path, err)
	}

	return nil
}

// Edit reads a configuration file without validating it, applies fn and
// saves the result. Comments in the file are not preserved.
func Edit(path string, fn func(*Config)) error {
	cfg, err := parseFile(path)
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(path, cfg)
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	if cfg.Server == "" {
		errs = append(errs, "'server' is required — add 'server: vault.example.com'")
	}
	if cfg.Repository == "" {
		errs = append(errs, "'repository' is required — add 'repository: <repository name>'")
	}
	if cfg.Path == "" {
		errs = append(errs, "'path' is required — add 'path: $/path/in/repository'")
	}

	switch cfg.Merge {
	case "", MergeAutomatic, MergeOverwrite, MergeLater:
	default:
		errs = append(errs, fmt.Sprintf("invalid merge '%s' — must be one of: automatic, overwrite, later", cfg.Merge))
	}

	switch cfg.FileTime {
	case "", FileTimeCheckin, FileTimeCurrent, FileTimeModification:
	default:
		errs = append(errs, fmt.Sprintf("invalid file_time '%s' — must be one of: checkin, current, modification", cfg.FileTime))
	}

	switch cfg.EnvExport {
	case "", ExportAlways, ExportNonEmpty:
	default:
		errs = append(errs, fmt.Sprintf("invalid env_export '%s' — must be one of: always, non-empty", cfg.EnvExport))
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid timeout '%s' — use a duration such as 30m", cfg.Timeout))
		} else if d < 0 {
			errs = append(errs, fmt.Sprintf("invalid timeout '%s' — must not be negative", cfg.Timeout))
		}
	}

	names := make(map[string]bool)
	for i, inst := range cfg.Installations {
		prefix := fmt.Sprintf("installation[%d]", i)
		if inst.Name != "" {
			prefix = fmt.Sprintf("installation '%s'", inst.Name)
		}

		if inst.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if names[inst.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate installation name '%s'", prefix, inst.Name))
		} else {
			names[inst.Name] = true
		}

		for node, loc := range inst.Nodes {
			if loc == "" {
				errs = append(errs, fmt.Sprintf("%s: node '%s' has an empty location", prefix, node))
			}
		}
	}

	if cfg.Vault != "" && !names[cfg.Vault] {
		errs = append(errs, fmt.Sprintf("'vault' references undefined installation '%s'", cfg.Vault))
	}

	return errs
}

// Connection resolves the configuration into the settings used for one
// operation. Defaults are applied here so callers never see unset modes.
func (c *Config) Connection() (ConnectionConfig, error) {
	conn := ConnectionConfig{
		Server:           c.Server,
		User:             c.User,
		Password:         c.Password,
		Repository:       c.Repository,
		Path:             c.Path,
		SSL:              boolValue(c.SSL, false),
		Merge:            c.Merge,
		FileTime:         c.FileTime,
		UseWorkingFolder: boolValue(c.UseWorkingFolder, true),
		MakeWritable:     boolValue(c.MakeWritable, false),
		Verbose:          boolValue(c.Verbose, false),
		Vault:            c.Vault,
		Installations:    append([]Installation(nil), c.Installations...),
		EnvExport:        c.EnvExport,
		TrackDeletes:     boolValue(c.History.TrackDeletes, false),
	}

	if conn.Merge == "" {
		conn.Merge = MergeOverwrite
	}
	if conn.FileTime == "" {
		conn.FileTime = FileTimeModification
	}
	if conn.EnvExport == "" {
		conn.EnvExport = ExportAlways
	}

	if c.PasswordEnv != "" {
		if v, ok := os.LookupEnv(c.PasswordEnv); ok {
			conn.Password = Secret(v)
		}
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return ConnectionConfig{}, fmt.Errorf("parsing timeout %q: %w", c.Timeout, err)
		}
		conn.Timeout = d
	}

	return conn, nil
}

// Redacted returns a copy of the configuration with the password masked,
// suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	if !out.Password.IsEmpty() {
		out.Password = redacted
	}
	return &out
}
