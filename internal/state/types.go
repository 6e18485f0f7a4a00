// Package state persists build records and the revision marker each build
// leaves behind for later polls and builds.
package state

import (
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/vault"
)

// History is the vault-scm.history file: every build of one job, oldest first.
type History struct {
	Builds  []Build `yaml:"builds"`
	Version int     `yaml:"version"`
}

// Result is the outcome of a build.
type Result string

const (
	ResultRunning Result = "running"
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Build records one checkout.
type Build struct {
	Number  int       `yaml:"number"`
	ID      string    `yaml:"id"`
	Started time.Time `yaml:"started"`
	Result  Result    `yaml:"result"`

	// Parameters are the build variables the build was started with.
	Parameters map[string]string `yaml:"parameters,omitempty"`

	Marker        *RevisionMarker `yaml:"marker,omitempty"`
	Changes       *changelog.Set  `yaml:"changes,omitempty"`
	ChangeLogFile string          `yaml:"changelog_file,omitempty"`
}

// Completed reports whether the build has finished.
func (b *Build) Completed() bool {
	return b.Result != ResultRunning
}

// RevisionMarker is the folder state a build checked out.
// Records written before folder properties were tracked carry only
// BuildDate and FolderVersion.
type RevisionMarker struct {
	Properties *vault.FolderState `yaml:"properties,omitempty"`

	BuildDate     *time.Time `yaml:"build_date,omitempty"`
	FolderVersion string     `yaml:"folder_version,omitempty"`
}

// NewMarker creates a marker for the observed folder state.
func NewMarker(s vault.FolderState) *RevisionMarker {
	return &RevisionMarker{Properties: &s}
}

// HasProperties reports whether the marker carries folder properties.
func (m *RevisionMarker) HasProperties() bool {
	return m != nil && m.Properties != nil
}

// Version returns the recorded folder version, or "" if none was recorded.
func (m *RevisionMarker) Version() string {
	if !m.HasProperties() {
		return ""
	}
	return m.Properties.Version
}

// Modified returns the recorded modification time, falling back to the build
// date of legacy records. It returns nil if neither is known.
func (m *RevisionMarker) Modified() *time.Time {
	if m == nil {
		return nil
	}
	if m.Properties == nil {
		return m.BuildDate
	}
	return m.Properties.Modified
}
