package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/config"
	"github.com/bianoble/vault-scm/internal/state"
	"github.com/bianoble/vault-scm/internal/vault"
)

// CheckoutEngine brings a workspace to a folder version and records what
// was checked out on the build.
type CheckoutEngine struct {
	Client       VaultClient
	Log          io.Writer
	Now          func() time.Time
	TrackDeletes bool
	EnvPolicy    string

	// OnPhase, if set, is called on every state transition.
	OnPhase func(Phase)
}

// Checkout runs the checkout for build b, which must belong to h. On success
// the marker and change log are attached to b. A failed client run leaves b
// untouched; a failed change log capture still attaches the marker.
func (e *CheckoutEngine) Checkout(ctx context.Context, h *state.History, b *state.Build, opts CheckoutOptions) (*CheckoutResult, error) {
	res := &CheckoutResult{Phase: PhaseIdle}
	log := e.log()

	e.enter(res, PhaseDeterminingTarget)
	explicit := opts.FolderVersion != ""

	var observed vault.FolderState
	if explicit {
		observed = vault.FolderState{Version: opts.FolderVersion}
		fmt.Fprintf(log, "Checking out requested folder version %s.\n", opts.FolderVersion)
	} else {
		var err error
		observed, err = e.Client.FolderProperties(ctx)
		if err != nil {
			e.enter(res, PhaseFailed)
			return res, fmt.Errorf("determining folder version: %w", err)
		}
		if observed.Version == "" {
			fmt.Fprintln(log, "WARNING: folder version is unknown.")
		}
	}
	res.Target = observed.Version

	previous := VersionNotSet
	prevBuild := h.Previous(b)
	if prevBuild != nil {
		previous = FolderVersion(h, prevBuild, e.EnvPolicy)
	}
	if res.Target != "" && res.Target == previous {
		e.enter(res, PhasePersistingMarker)
		res.Unchanged = true
		res.Marker = state.NewMarker(observed)
		b.Marker = res.Marker
		fmt.Fprintln(log, "Folder version did not change.")
		e.enter(res, PhaseDone)
		return res, nil
	}

	e.enter(res, PhaseInvoking)
	if err := e.Client.GetVersion(ctx, res.Target, opts.Workspace); err != nil {
		e.enter(res, PhaseFailed)
		return res, err
	}

	var captureErr error
	if !explicit {
		begin := time.Unix(0, 0)
		if prevBuild != nil {
			begin = prevBuild.Started
		} else {
			fmt.Fprintln(log, "Never been built.")
		}
		res.Changes, res.ChangeLogFile, captureErr = e.captureChangeLog(ctx, begin, e.now(), opts.ChangeLogFile)
	}

	e.enter(res, PhasePersistingMarker)
	res.Marker = state.NewMarker(observed)
	b.Marker = res.Marker
	b.Changes = res.Changes
	b.ChangeLogFile = res.ChangeLogFile

	if captureErr != nil {
		e.enter(res, PhaseFailed)
		return res, captureErr
	}

	fmt.Fprintln(log, "Checkout completed.")
	e.enter(res, PhaseDone)
	return res, nil
}

// captureChangeLog records the history report for [begin, end] to path (or
// memory) and parses it. Parse problems are logged and yield what was read.
func (e *CheckoutEngine) captureChangeLog(ctx context.Context, begin, end time.Time, path string) (*changelog.Set, string, error) {
	log := e.log()

	var buf bytes.Buffer
	var w io.Writer = &buf
	var f *os.File
	if path != "" {
		var err error
		f, err = os.Create(path)
		if err != nil {
			return nil, "", fmt.Errorf("creating change log file: %w", err)
		}
		w = f
	}

	err := e.Client.CaptureHistory(ctx, begin, end, w)
	if f != nil {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("writing change log file: %w", cerr)
		}
	}
	if err != nil {
		return nil, path, err
	}

	var r io.Reader = &buf
	if f != nil {
		rf, err := os.Open(path)
		if err != nil {
			return nil, path, fmt.Errorf("reading change log file: %w", err)
		}
		defer func() { _ = rf.Close() }()
		r = rf
	}

	set, perr := changelog.Parse(r, changelog.ParseOptions{TrackDeletes: e.TrackDeletes})
	if perr != nil {
		fmt.Fprintf(log, "WARNING: %v\n", perr)
	}
	fmt.Fprintln(log, "Changelog calculated successfully.")
	if path != "" {
		fmt.Fprintf(log, "Change log file: %s\n", path)
	}
	return set, path, nil
}

func (e *CheckoutEngine) enter(res *CheckoutResult, p Phase) {
	res.Phase = p
	if e.OnPhase != nil {
		e.OnPhase(p)
	}
}

func (e *CheckoutEngine) log() io.Writer {
	return logOrDiscard(e.Log)
}

func (e *CheckoutEngine) now() time.Time {
	return nowOr(e.Now)
}

func logOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

// ExportPolicy returns the configured export policy, defaulting to always.
func ExportPolicy(conn config.ConnectionConfig) string {
	if conn.EnvExport == "" {
		return config.ExportAlways
	}
	return conn.EnvExport
}
