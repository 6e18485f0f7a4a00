package engine

import (
	"context"
	"io"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/state"
	"github.com/bianoble/vault-scm/internal/vault"
)

// VaultClient is the part of vault.Client the engines drive.
type VaultClient interface {
	FolderProperties(ctx context.Context) (vault.FolderState, error)
	GetVersion(ctx context.Context, version, workspace string) error
	CountChanges(ctx context.Context, begin, end time.Time) (int, error)
	CaptureHistory(ctx context.Context, begin, end time.Time, w io.Writer) error
}

var _ VaultClient = (*vault.Client)(nil)

// PollResult is the outcome of a poll.
type PollResult int

const (
	NoChanges PollResult = iota
	BuildNow
)

func (r PollResult) String() string {
	if r == BuildNow {
		return "BUILD_NOW"
	}
	return "NO_CHANGES"
}

// Phase is a step of the checkout state machine.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseDeterminingTarget Phase = "determining-target"
	PhaseInvoking          Phase = "invoking"
	PhasePersistingMarker  Phase = "persisting-marker"
	PhaseDone              Phase = "done"
	PhaseFailed            Phase = "failed"
)

// CheckoutOptions configures one checkout.
type CheckoutOptions struct {
	Workspace string

	// FolderVersion pins the checkout to an explicit folder version.
	// No live query is made and no change log is captured.
	FolderVersion string

	// ChangeLogFile receives the raw history report. Empty keeps it in memory.
	ChangeLogFile string
}

// CheckoutResult holds the outcome of a checkout.
type CheckoutResult struct {
	Phase Phase

	// Target is the folder version that was checked out.
	Target string

	// Unchanged is set when the target matched the previous build's version
	// and the client was not run.
	Unchanged bool

	Marker        *state.RevisionMarker
	Changes       *changelog.Set
	ChangeLogFile string
}

// AncientBaseline is the date-based poll window start when nothing better is known.
var AncientBaseline = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.Local)
