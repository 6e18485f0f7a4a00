package state

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a build history file.
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history %s: %w", path, err)
	}

	var h History
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}

	if errs := Validate(&h); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &h, nil
}

// LoadOrNew reads a build history file, returning an empty history if the
// file does not exist yet.
func LoadOrNew(path string) (*History, error) {
	h, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{Version: 1}, nil
	}
	return h, err
}

// Save writes a build history file atomically using a temp file and rename.
func Save(path string, h *History) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := writeAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("saving history %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("history validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a History for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(h *History) []string {
	var errs []string

	if h.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", h.Version))
	}

	last := 0
	for i, b := range h.Builds {
		prefix := fmt.Sprintf("build[%d]", i)
		if b.Number > 0 {
			prefix = fmt.Sprintf("build #%d", b.Number)
		}

		if b.Number <= 0 {
			errs = append(errs, fmt.Sprintf("%s: 'number' must be positive", prefix))
		} else if b.Number <= last {
			errs = append(errs, fmt.Sprintf("%s: build numbers must be strictly increasing", prefix))
		} else {
			last = b.Number
		}

		switch b.Result {
		case ResultRunning, ResultSuccess, ResultFailure:
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'result' is required", prefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid result '%s' — must be one of: running, success, failure", prefix, b.Result))
		}
	}

	return errs
}
