package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bianoble/vault-scm/internal/state"
)

// PollEngine decides whether the remote folder changed since the last build.
type PollEngine struct {
	Client VaultClient
	Log    io.Writer
	Now    func() time.Time
}

// Poll compares the live folder against the baseline marker of h. A recorded
// version is compared directly; without one, history items since the
// baseline date are counted. A failed client run returns NoChanges with the error.
func (e *PollEngine) Poll(ctx context.Context, h *state.History) (PollResult, error) {
	log := logOrDiscard(e.Log)
	baseline := h.Baseline()

	if old := baseline.Version(); old != "" {
		live, err := e.Client.FolderProperties(ctx)
		if err != nil {
			return NoChanges, err
		}
		fmt.Fprintf(log, "folder versions: old = %s, new = %s\n", old, live.Version)
		if live.Version == old {
			return NoChanges, nil
		}
		return BuildNow, nil
	}

	since := BaselineDate(h)
	fmt.Fprintf(log, "Last build date set to %s\n", since.Format(time.RFC1123))

	n, err := e.Client.CountChanges(ctx, since, nowOr(e.Now))
	if err != nil {
		return NoChanges, err
	}
	if n == 0 {
		return NoChanges, nil
	}
	return BuildNow, nil
}

// BaselineDate is the start of the date-based poll window: the baseline
// marker's modification time, else the last completed build's start, else
// AncientBaseline.
func BaselineDate(h *state.History) time.Time {
	if m := h.Baseline().Modified(); m != nil {
		return *m
	}
	if b := h.LastCompleted(); b != nil {
		return b.Started
	}
	return AncientBaseline
}
