package state

import (
	"time"

	"github.com/google/uuid"
)

// Start appends a new running build and returns it. The returned pointer is
// valid until the next call to Start.
func (h *History) Start(now time.Time, params map[string]string) *Build {
	number := 1
	if last := h.Last(); last != nil {
		number = last.Number + 1
	}
	h.Builds = append(h.Builds, Build{
		Number:     number,
		ID:         uuid.NewString(),
		Started:    now,
		Result:     ResultRunning,
		Parameters: params,
	})
	return &h.Builds[len(h.Builds)-1]
}

// Get returns the build with the given number, or nil.
func (h *History) Get(number int) *Build {
	for i := range h.Builds {
		if h.Builds[i].Number == number {
			return &h.Builds[i]
		}
	}
	return nil
}

// Last returns the most recent build, or nil.
func (h *History) Last() *Build {
	if len(h.Builds) == 0 {
		return nil
	}
	return &h.Builds[len(h.Builds)-1]
}

// Previous returns the build immediately before b, whatever its result, or nil.
func (h *History) Previous(b *Build) *Build {
	var prev *Build
	for i := range h.Builds {
		if h.Builds[i].Number >= b.Number {
			break
		}
		prev = &h.Builds[i]
	}
	return prev
}

// LastCompleted returns the most recent finished build, or nil.
func (h *History) LastCompleted() *Build {
	for i := len(h.Builds) - 1; i >= 0; i-- {
		if h.Builds[i].Completed() {
			return &h.Builds[i]
		}
	}
	return nil
}

// Baseline returns the revision marker polls compare against: the marker of
// the most recent finished build that has one. It returns nil if no build
// left a marker.
func (h *History) Baseline() *RevisionMarker {
	for i := len(h.Builds) - 1; i >= 0; i-- {
		b := &h.Builds[i]
		if b.Completed() && b.Marker != nil {
			return b.Marker
		}
	}
	return nil
}

// Prune drops all but the newest keep builds and returns the numbers of the
// dropped builds. Running builds and the build holding the baseline marker
// are always kept. A keep of zero or less keeps everything.
func (h *History) Prune(keep int) []int {
	if keep <= 0 || len(h.Builds) <= keep {
		return nil
	}

	baseline := h.Baseline()
	cutoff := len(h.Builds) - keep

	var dropped []int
	kept := h.Builds[:0]
	for i, b := range h.Builds {
		if i >= cutoff || !b.Completed() || (baseline != nil && b.Marker == baseline) {
			kept = append(kept, b)
			continue
		}
		dropped = append(dropped, b.Number)
	}
	h.Builds = kept
	return dropped
}
