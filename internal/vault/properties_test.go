package vault

import (
	"strings"
	"testing"
	"time"
)

func TestParseFolderPropertiesNoModifiedDate(t *testing.T) {
	state, err := ParseFolderProperties(strings.NewReader(`<vault><objectproperties><version>42</version><objectid>7</objectid></objectproperties></vault>`))
	if err != nil {
		t.Fatalf("ParseFolderProperties: %v", err)
	}
	if state.Version != "42" || state.ObjectID != "7" {
		t.Errorf("state = %+v", state)
	}
	if state.Modified != nil {
		t.Errorf("modified = %v, want absent", state.Modified)
	}
}

func TestParseFolderPropertiesAllFields(t *testing.T) {
	const report = `<?xml version="1.0" encoding="windows-1252"?>
<vault>
  <objectproperties>
    <name>trunk</name>
    <version>118</version>
    <objectid>2045</objectid>
    <modifieddate>3/14/2012 9:26:53 AM</modifieddate>
  </objectproperties>
  <result success="True" />
</vault>`

	state, err := ParseFolderProperties(strings.NewReader(report))
	if err != nil {
		t.Fatalf("ParseFolderProperties: %v", err)
	}
	want := time.Date(2012, 3, 14, 9, 26, 53, 0, time.Local)
	if state.Version != "118" || state.ObjectID != "2045" || state.Modified == nil || !state.Modified.Equal(want) {
		t.Errorf("state = %+v", state)
	}
}

func TestParseFolderPropertiesDuplicateElementLeftAbsent(t *testing.T) {
	state, err := ParseFolderProperties(strings.NewReader(`<vault><version>1</version><version>2</version><objectid>9</objectid></vault>`))
	if err != nil {
		t.Fatal(err)
	}
	if state.Version != "" {
		t.Errorf("version = %q, want absent for duplicate elements", state.Version)
	}
	if state.ObjectID != "9" {
		t.Errorf("objectid = %q", state.ObjectID)
	}
}

func TestParseFolderPropertiesMalformed(t *testing.T) {
	state, err := ParseFolderProperties(strings.NewReader(`<vault><version>42</version><objectid>`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !state.IsEmpty() {
		t.Errorf("malformed report should yield an empty state, got %+v", state)
	}
}

func TestParseFolderPropertiesBadDateKeepsOtherFields(t *testing.T) {
	state, err := ParseFolderProperties(strings.NewReader(`<vault><version>5</version><modifieddate>whenever</modifieddate></vault>`))
	if err == nil {
		t.Fatal("expected date error")
	}
	if state.Version != "5" || state.Modified != nil {
		t.Errorf("state = %+v", state)
	}
}

func TestParseFolderPropertiesEmpty(t *testing.T) {
	state, err := ParseFolderProperties(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsEmpty() {
		t.Errorf("state = %+v", state)
	}
}
