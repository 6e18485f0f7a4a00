// Package tool resolves which client executable a job runs.
package tool

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/bianoble/vault-scm/internal/config"
)

// Default client install locations, probed in order when a job selects no installation.
const (
	DefaultPath    = `C:\Program Files\SourceGear\Vault Client\vault.exe`
	DefaultPathX86 = `C:\Program Files (x86)\SourceGear\Vault Client\vault.exe`
)

// Installations resolves installation names to client locations.
// It is a snapshot taken once per operation.
type Installations struct {
	defs map[string]config.Installation
}

// NewInstallations creates a snapshot of the configured installations.
func NewInstallations(defs []config.Installation) *Installations {
	m := make(map[string]config.Installation, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return &Installations{defs: m}
}

// Get returns the named installation.
func (in *Installations) Get(name string) (config.Installation, error) {
	inst, ok := in.defs[name]
	if !ok {
		return config.Installation{}, fmt.Errorf("unknown installation '%s' — define it in installations: [{name: %s, location: ...}]", name, name)
	}
	return inst, nil
}

// Names returns all installation names, sorted.
func (in *Installations) Names() []string {
	names := make([]string, 0, len(in.defs))
	for name := range in.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForNode returns the client location of an installation on the given node.
// A node entry overrides the installation's location; an installation with no
// location falls back to DefaultPathX86.
func ForNode(inst config.Installation, node string) string {
	if node != "" {
		if loc, ok := inst.Nodes[node]; ok && loc != "" {
			return loc
		}
	}
	if inst.Location == "" {
		return DefaultPathX86
	}
	return inst.Location
}

// NotFoundError reports that no usable client executable exists.
type NotFoundError struct {
	Name  string // installation name, empty when probing defaults
	Tried []string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("vault client for installation '%s' not found: %s doesn't exist or is not executable", e.Name, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("failed to find vault client — tried %s", strings.Join(e.Tried, ", "))
}

// Locator finds the client executable for an operation.
type Locator struct {
	Installations *Installations

	// Node is the build node the operation runs on. Empty means the local machine.
	Node string

	// Stat defaults to os.Stat.
	Stat func(string) (os.FileInfo, error)
}

// Locate returns the path to the client executable. With a named installation
// its node-specific location must exist; otherwise the default locations are
// probed in order.
func (l *Locator) Locate(name string) (string, error) {
	if name != "" && l.Installations != nil {
		inst, err := l.Installations.Get(name)
		if err != nil {
			return "", err
		}
		path := ForNode(inst, l.Node)
		if !l.usable(path) {
			return "", &NotFoundError{Name: name, Tried: []string{path}}
		}
		return path, nil
	}

	candidates := []string{DefaultPath, DefaultPathX86}
	for _, path := range candidates {
		if l.usable(path) {
			return path, nil
		}
	}
	return "", &NotFoundError{Tried: candidates}
}

func (l *Locator) usable(path string) bool {
	stat := l.Stat
	if stat == nil {
		stat = os.Stat
	}
	fi, err := stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fi.Mode().Perm()&0111 != 0
}
