package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/vault"
)

const exampleHistory = `version: 1
builds:
  - number: 1
    id: 0b1d7c56-6d0e-4f44-9a0b-3c0b9f1a5e01
    started: 2024-03-01T09:00:00Z
    result: success
    marker:
      properties:
        version: "41"
        object_id: "1234"
        modified: 2024-03-01T08:55:00Z
  - number: 2
    id: 5f0e2a1c-1d2b-4c3a-8e7f-6a5b4c3d2e1f
    started: 2024-03-02T09:00:00Z
    result: failure
    marker:
      properties:
        version: "42"
    changes:
      entries:
        - txid: "900"
          author: alice
          comment: fix
          files:
            - path: src/a.txt
              edit_type: edit
  - number: 3
    id: 9c8b7a6f-5e4d-4c3b-a2a1-0f9e8d7c6b5a
    started: 2024-03-03T09:00:00Z
    result: running
`

const legacyHistory = `version: 1
builds:
  - number: 7
    id: legacy
    started: 2019-05-01T10:00:00Z
    result: success
    marker:
      build_date: 2019-05-01T10:00:00Z
      folder_version: "17"
`

func writeHistory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault-scm.history")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidHistory(t *testing.T) {
	h, err := Load(writeHistory(t, exampleHistory))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(h.Builds) != 3 {
		t.Fatalf("builds = %d, want 3", len(h.Builds))
	}
	if got := h.Builds[1].Marker.Version(); got != "42" {
		t.Errorf("build 2 marker version = %q, want 42", got)
	}
	if h.Builds[1].Changes.Len() != 1 {
		t.Errorf("build 2 changes = %d, want 1", h.Builds[1].Changes.Len())
	}
	if h.Builds[0].Marker.Properties.ObjectID != "1234" {
		t.Errorf("object id = %q, want 1234", h.Builds[0].Marker.Properties.ObjectID)
	}
}

func TestLoadLegacyMarker(t *testing.T) {
	h, err := Load(writeHistory(t, legacyHistory))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := h.Builds[0].Marker
	if m.HasProperties() {
		t.Error("legacy marker should not have properties")
	}
	if m.Version() != "" {
		t.Errorf("Version() = %q, want empty", m.Version())
	}
	if m.FolderVersion != "17" {
		t.Errorf("FolderVersion = %q, want 17", m.FolderVersion)
	}
	want := time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC)
	if mod := m.Modified(); mod == nil || !mod.Equal(want) {
		t.Errorf("Modified() = %v, want %v", mod, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/vault-scm.history")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrNewMissingFile(t *testing.T) {
	h, err := LoadOrNew(filepath.Join(t.TempDir(), "vault-scm.history"))
	if err != nil {
		t.Fatalf("LoadOrNew: %v", err)
	}
	if h.Version != 1 || len(h.Builds) != 0 {
		t.Errorf("got %+v, want empty version 1 history", h)
	}
}

func TestLoadOrNewInvalidFile(t *testing.T) {
	_, err := LoadOrNew(writeHistory(t, "version: 2\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault-scm.history")
	mod := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	original := &History{Version: 1}
	b := original.Start(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), map[string]string{"SPECIFIC_VAULT_FOLDER_VERSION": "12"})
	b.Result = ResultSuccess
	b.Marker = NewMarker(vault.FolderState{Version: "12", ObjectID: "99", Modified: &mod})
	b.Changes = &changelog.Set{Entries: []changelog.Entry{{TransactionID: "5", Author: "bob"}}}

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if len(loaded.Builds) != 1 {
		t.Fatalf("builds = %d, want 1", len(loaded.Builds))
	}
	got := loaded.Builds[0]
	if got.ID != b.ID {
		t.Errorf("id = %q, want %q", got.ID, b.ID)
	}
	if got.Marker.Version() != "12" {
		t.Errorf("marker version = %q, want 12", got.Marker.Version())
	}
	if m := got.Marker.Modified(); m == nil || !m.Equal(mod) {
		t.Errorf("marker modified = %v, want %v", m, mod)
	}
	if got.Parameters["SPECIFIC_VAULT_FOLDER_VERSION"] != "12" {
		t.Errorf("parameters = %v", got.Parameters)
	}
	if got.Changes.Entries[0].Author != "bob" {
		t.Errorf("author = %q, want bob", got.Changes.Entries[0].Author)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".vault-scm-*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left after save: %v", leftovers)
	}
}

func TestSaveAtomicity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault-scm.history")

	first := &History{Version: 1}
	first.Start(time.Now(), nil).Result = ResultSuccess
	if err := Save(path, first); err != nil {
		t.Fatal(err)
	}

	second := &History{Version: 1}
	second.Start(time.Now(), nil).Result = ResultSuccess
	second.Start(time.Now(), nil).Result = ResultFailure
	if err := Save(path, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Builds) != 2 {
		t.Errorf("builds = %d, want 2", len(loaded.Builds))
	}
}

func TestValidateBadVersion(t *testing.T) {
	errs := Validate(&History{Version: 3})
	if len(errs) != 1 || !strings.Contains(errs[0], "unsupported version") {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidateBuilds(t *testing.T) {
	tests := []struct {
		name   string
		builds []Build
		want   string
	}{
		{"zero number", []Build{{Number: 0, Result: ResultSuccess}}, "'number' must be positive"},
		{"duplicate number", []Build{{Number: 2, Result: ResultSuccess}, {Number: 2, Result: ResultSuccess}}, "strictly increasing"},
		{"decreasing", []Build{{Number: 3, Result: ResultSuccess}, {Number: 1, Result: ResultSuccess}}, "strictly increasing"},
		{"missing result", []Build{{Number: 1}}, "'result' is required"},
		{"bad result", []Build{{Number: 1, Result: "aborted"}}, "invalid result 'aborted'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&History{Version: 1, Builds: tt.builds})
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			if !containsSubstring(errs, tt.want) {
				t.Errorf("errs = %v, want one containing %q", errs, tt.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Errors: []string{"a", "b"}}
	if !strings.Contains(err.Error(), "  - a\n  - b") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func containsSubstring(errs []string, sub string) bool {
	for _, e := range errs {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}
