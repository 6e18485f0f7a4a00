// Package changelog models the changes a build picked up and parses them from
// the client's history report.
package changelog

import "time"

// EditType is the kind of change made to an affected file.
type EditType string

const (
	EditAdd    EditType = "add"
	EditEdit   EditType = "edit"
	EditDelete EditType = "delete"
)

// AffectedFile is one file touched by a change entry.
type AffectedFile struct {
	Path     string   `yaml:"path"`
	EditType EditType `yaml:"edit_type"`
	Version  string   `yaml:"version,omitempty"`
}

// Entry is one transaction: every history item sharing a txid.
type Entry struct {
	TransactionID string         `yaml:"txid"`
	Author        string         `yaml:"author,omitempty"`
	Date          string         `yaml:"date,omitempty"` // as reported by the client
	Comment       string         `yaml:"comment,omitempty"`
	Version       string         `yaml:"version,omitempty"`
	Files         []AffectedFile `yaml:"files,omitempty"`
}

// Timestamp parses the reported date. It returns the zero time if the date
// cannot be parsed.
func (e *Entry) Timestamp() time.Time {
	t, err := ParseDate(e.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CommitID returns the transaction id.
func (e *Entry) CommitID() string {
	return e.TransactionID
}

// AffectedPaths returns the paths of the affected files in report order.
func (e *Entry) AffectedPaths() []string {
	paths := make([]string, 0, len(e.Files))
	for _, f := range e.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Set is the ordered change log of one build.
type Set struct {
	Entries []Entry `yaml:"entries,omitempty"`
}

// IsEmpty reports whether the set has no entries. A nil set is empty.
func (s *Set) IsEmpty() bool {
	return s == nil || len(s.Entries) == 0
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// BrowseURL returns the base URL of the server that produced the change log.
func BrowseURL(server string, ssl bool) string {
	if ssl {
		return "https://" + server
	}
	return "http://" + server
}
