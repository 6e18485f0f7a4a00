package engine

import (
	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/state"
)

const (
	// EnvFolderVersion is exported to build steps with the checked out folder version.
	EnvFolderVersion = "VAULT_FOLDER_VERSION"

	// EnvSpecificFolderVersion is the build variable that pins a checkout.
	EnvSpecificFolderVersion = "SPECIFIC_VAULT_FOLDER_VERSION"

	VersionNotSet  = "NOT_SET"
	VersionUnknown = "unknown"
)

// FolderVersion resolves the folder version for build b. A build's own marker
// wins; a build with neither marker nor changes inherits from the build before
// it. With the non-empty policy a marker without a version is passed over.
func FolderVersion(h *state.History, b *state.Build, policy string) string {
	for cur := b; cur != nil; cur = h.Previous(cur) {
		if cur.Marker.HasProperties() {
			v := cur.Marker.Version()
			if v != "" || policy != config.ExportNonEmpty {
				return v
			}
		}
		if !cur.Changes.IsEmpty() {
			if v := cur.Changes.Entries[0].Version; v != "" {
				return v
			}
			return VersionUnknown
		}
	}
	return VersionNotSet
}

// EnvVars returns the variables exported to build b's steps.
func EnvVars(h *state.History, b *state.Build, policy string) map[string]string {
	return map[string]string{EnvFolderVersion: FolderVersion(h, b, policy)}
}
