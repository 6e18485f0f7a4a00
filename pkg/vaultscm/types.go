package vaultscm

import (
	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/engine"
	"github.com/bianoble/vault-scm/internal/vault"
)

// Type aliases re-export the change log model and poll result as the public API.

type ChangeLogSet = changelog.Set
type ChangeEntry = changelog.Entry
type AffectedFile = changelog.AffectedFile
type EditType = changelog.EditType

type PollResult = engine.PollResult

const (
	NoChanges = engine.NoChanges
	BuildNow  = engine.BuildNow
)

// Runner and Invocation let embedders replace how the client is started.
type Runner = vault.Runner
type Invocation = vault.Invocation

// CheckoutOptions configures one checkout.
type CheckoutOptions struct {
	// FolderVersion pins the checkout to a folder version. Empty means latest.
	FolderVersion string

	// ChangeLogFile receives the raw history report. Empty writes it to
	// builds/N/changelog.xml next to the build history.
	ChangeLogFile string
}

// CheckoutResult holds the outcome of a checkout.
type CheckoutResult struct {
	Build   int
	BuildID string

	// Version is the folder version now in the workspace.
	Version   string
	Unchanged bool
	Changes   *ChangeLogSet

	// ChangeLogFile is where the raw history report was written, if anywhere.
	ChangeLogFile string
}
