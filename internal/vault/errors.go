package vault

import "fmt"

// CommandError reports a client run that exited non-zero.
type CommandError struct {
	Operation string
	ExitCode  int
	Hint      string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Operation, e.ExitCode)
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}
