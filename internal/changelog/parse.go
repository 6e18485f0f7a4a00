package changelog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Item actions that produce affected files.
const (
	ActionCheckIn = "CheckIn"
	ActionCreated = "Created"
	ActionDeleted = "Deleted"
)

// ParseOptions controls how history items become change entries.
type ParseOptions struct {
	// TrackDeletes records Deleted items as EditDelete files. When false only
	// check-ins and creations contribute affected files.
	TrackDeletes bool
}

// Parse reads a history report. Consecutive <item> elements sharing a txid
// form one Entry; the first item of a transaction supplies its author, date,
// comment and version. On malformed XML the entries parsed so far are
// returned together with the error.
func Parse(r io.Reader, opts ParseOptions) (*Set, error) {
	set := &Set{}
	var current *Entry
	lastTxID := ""
	first := true

	err := walkItems(r, func(it item) {
		if first || it.TxID != lastTxID {
			set.Entries = append(set.Entries, Entry{
				TransactionID: it.TxID,
				Author:        it.User,
				Date:          it.Date,
				Comment:       it.Comment,
				Version:       it.Version,
			})
			current = &set.Entries[len(set.Entries)-1]
			lastTxID = it.TxID
			first = false
		}

		editType, ok := editTypeFor(it.TypeName, opts)
		if !ok {
			return
		}
		current.Files = append(current.Files, AffectedFile{
			Path:     stripRoot(it.Name),
			EditType: editType,
			Version:  it.Version,
		})
	})
	if err != nil {
		return set, fmt.Errorf("parsing history report: %w", err)
	}
	return set, nil
}

// ParseFile parses a captured history report from disk.
func ParseFile(path string, opts ParseOptions) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return &Set{}, fmt.Errorf("opening change log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, opts)
}

// CountItems returns the number of <item> elements in a history report.
func CountItems(r io.Reader) (int, error) {
	n := 0
	err := walkItems(r, func(item) { n++ })
	if err != nil {
		return n, fmt.Errorf("parsing history report: %w", err)
	}
	return n, nil
}

func editTypeFor(typeName string, opts ParseOptions) (EditType, bool) {
	switch typeName {
	case ActionCheckIn:
		return EditEdit, true
	case ActionCreated:
		return EditAdd, true
	case ActionDeleted:
		if opts.TrackDeletes {
			return EditDelete, true
		}
	}
	return "", false
}

// stripRoot drops the leading repository root segment ("$/") from a path.
func stripRoot(name string) string {
	if i := strings.IndexByte(name, '/'); i > 0 {
		return name[i+1:]
	}
	return name
}

// item holds the attributes of one <item> element.
type item struct {
	TxID     string `xml:"txid,attr"`
	User     string `xml:"user,attr"`
	Date     string `xml:"date,attr"`
	Comment  string `xml:"comment,attr"`
	Name     string `xml:"name,attr"`
	Version  string `xml:"version,attr"`
	TypeName string `xml:"typeName,attr"`
}

// walkItems calls fn for every <item> element in document order, wherever it
// appears in the tree. Items carry no child elements.
func walkItems(r io.Reader, fn func(item)) error {
	dec := NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "item" {
			continue
		}
		var it item
		if err := dec.DecodeElement(&it, &se); err != nil {
			return err
		}
		fn(it)
	}
}

// NewDecoder returns an XML decoder for client reports. Reports declare
// various single-byte encodings but are ASCII in practice, so the declared
// charset is not converted.
func NewDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec
}
