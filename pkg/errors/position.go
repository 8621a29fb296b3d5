package errors

import "fmt"

// Location identifies where in a mutation script an error was raised.
// Errors raised directly through the Go API carry the zero Location.
type Location struct {
	Script string // script name or file path
	Step   int    // 1-based step number, 0 when not tied to a step
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool { return l.Script == "" && l.Step == 0 }

func (l Location) String() string {
	switch {
	case l.IsZero():
		return "<api>"
	case l.Step == 0:
		return l.Script
	default:
		return fmt.Sprintf("%s:step %d", l.Script, l.Step)
	}
}
