package config

import "time"

// Config represents the vault-scm.yaml configuration file.
// A project file and the optional system/user files share this shape;
// the layers are merged before use.
type Config struct {
	Version int `yaml:"version"`

	// Connection settings.
	Server      string `yaml:"server,omitempty"`
	User        string `yaml:"user,omitempty"`
	Password    Secret `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	Repository  string `yaml:"repository,omitempty"`
	Path        string `yaml:"path,omitempty"` // repository path, starts with "$"
	SSL         *bool  `yaml:"ssl,omitempty"`

	// Checkout behaviour.
	Merge            string `yaml:"merge,omitempty"`     // "automatic", "overwrite", "later"
	FileTime         string `yaml:"file_time,omitempty"` // "checkin", "current", "modification"
	UseWorkingFolder *bool  `yaml:"use_working_folder,omitempty"`
	MakeWritable     *bool  `yaml:"make_writable,omitempty"`
	Verbose          *bool  `yaml:"verbose,omitempty"`

	// Vault names the client installation to use. Empty probes the default locations.
	Vault         string         `yaml:"vault,omitempty"`
	Installations []Installation `yaml:"installations,omitempty"`

	EnvExport string         `yaml:"env_export,omitempty"` // "always", "non-empty"
	History   HistoryOptions `yaml:"history,omitempty"`
	Timeout   string         `yaml:"timeout,omitempty"` // Go duration, empty waits forever
}

// Installation is a named client installation.
type Installation struct {
	Name     string `yaml:"name"`
	Home     string `yaml:"home,omitempty"`
	Location string `yaml:"location,omitempty"`

	// Nodes maps a build node name to the client location on that node.
	Nodes map[string]string `yaml:"nodes,omitempty"`
}

// HistoryOptions controls how version history is turned into change entries.
type HistoryOptions struct {
	TrackDeletes *bool `yaml:"track_deletes,omitempty"`
}

// Merge modes accepted by the client.
const (
	MergeAutomatic = "automatic"
	MergeOverwrite = "overwrite"
	MergeLater     = "later"
)

// File time modes accepted by the client.
const (
	FileTimeCheckin      = "checkin"
	FileTimeCurrent      = "current"
	FileTimeModification = "modification"
)

// Environment export policies.
const (
	// ExportAlways exports the version from a build's revision marker
	// whenever the marker exists, even if the version is empty.
	ExportAlways = "always"
	// ExportNonEmpty only exports a marker version that is non-empty and
	// otherwise keeps walking back through earlier builds.
	ExportNonEmpty = "non-empty"
)

// ConnectionConfig is the resolved, immutable view of a Config used for a
// single checkout or poll.
type ConnectionConfig struct {
	Server           string
	User             string
	Password         Secret
	Repository       string
	Path             string
	SSL              bool
	Merge            string
	FileTime         string
	UseWorkingFolder bool
	MakeWritable     bool
	Verbose          bool

	Vault         string
	Installations []Installation

	EnvExport    string
	TrackDeletes bool
	Timeout      time.Duration
}

func boolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
