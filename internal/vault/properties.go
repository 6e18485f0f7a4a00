package vault

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
)

// FolderState is the remote folder as reported by one properties query.
// Empty fields were not reported. Version is the authoritative change
// marker; Modified is a fallback.
type FolderState struct {
	Version  string     `yaml:"version,omitempty"`
	ObjectID string     `yaml:"object_id,omitempty"`
	Modified *time.Time `yaml:"modified,omitempty"`
}

// IsEmpty reports whether nothing is known about the folder.
func (s FolderState) IsEmpty() bool {
	return s.Version == "" && s.ObjectID == "" && s.Modified == nil
}

const (
	elemVersion  = "version"
	elemObjectID = "objectid"
	elemModified = "modifieddate"
)

// ParseFolderProperties extracts version, object id and modification date from
// a properties report. Each field is taken only if its element occurs exactly
// once. A malformed document yields an empty state; an unparseable date leaves
// only Modified empty. The error describes what was dropped.
func ParseFolderProperties(r io.Reader) (FolderState, error) {
	texts, counts, err := collectText(r, elemVersion, elemObjectID, elemModified)
	if err != nil {
		return FolderState{}, fmt.Errorf("parsing properties report: %w", err)
	}

	var state FolderState
	if counts[elemVersion] == 1 {
		state.Version = strings.TrimSpace(texts[elemVersion])
	}
	if counts[elemObjectID] == 1 {
		state.ObjectID = strings.TrimSpace(texts[elemObjectID])
	}
	if counts[elemModified] == 1 {
		t, err := changelog.ParseDate(texts[elemModified])
		if err != nil {
			return state, fmt.Errorf("parsing %s: %w", elemModified, err)
		}
		state.Modified = &t
	}
	return state, nil
}

// collectText returns the text content of the first occurrence of each named
// element, including text of nested elements, and how often each occurred.
func collectText(r io.Reader, names ...string) (map[string]string, map[string]int, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	texts := make(map[string]string)
	counts := make(map[string]int)

	type capture struct {
		name string
		buf  strings.Builder
	}
	// One stack slot per open element; nil for elements we don't capture.
	var open []*capture

	dec := changelog.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return texts, counts, nil
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if wanted[t.Name.Local] {
				counts[t.Name.Local]++
				open = append(open, &capture{name: t.Name.Local})
			} else {
				open = append(open, nil)
			}
		case xml.EndElement:
			if len(open) == 0 {
				continue
			}
			c := open[len(open)-1]
			open = open[:len(open)-1]
			if c != nil {
				if _, seen := texts[c.name]; !seen {
					texts[c.name] = c.buf.String()
				}
			}
		case xml.CharData:
			for _, c := range open {
				if c != nil {
					c.buf.Write(t)
				}
			}
		}
	}
}
