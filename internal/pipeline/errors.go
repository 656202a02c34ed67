package pipeline

import (
	"fmt"
	"strings"
)

// State names one node of the run state machine.
type State string

const (
	StateStart      State = "start"
	StateNormalized State = "normalized"
	StateEncoded    State = "encoded"
	StateSwapped    State = "swapped"
	StatePatched    State = "patched"
	StateValidated  State = "validated"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// SwapError is a region-swap re-encode failure, with the transcoder's
// diagnostic output attached when available.
type SwapError struct {
	Reason string
	Stderr string
}

func (e *SwapError) Error() string {
	if e.Stderr == "" {
		return "region swap: " + e.Reason
	}
	return "region swap: " + e.Reason + "\n" + tail(e.Stderr)
}

// ResolutionMismatchError reports a swapped video whose resolution differs
// from the computed canvas.
type ResolutionMismatchError struct {
	WantW, WantH int
	GotW, GotH   int
}

func (e *ResolutionMismatchError) Error() string {
	return fmt.Sprintf("swapped video is %dx%d, want %dx%d", e.GotW, e.GotH, e.WantW, e.WantH)
}

// AtomPatchError wraps a scanner or patcher failure. Fatal for the run: a
// swapped-but-unpatched file is unusable.
type AtomPatchError struct {
	Err error
}

func (e *AtomPatchError) Error() string { return "vapc patch: " + e.Err.Error() }
func (e *AtomPatchError) Unwrap() error { return e.Err }

// ValidationError reports a failed post-condition check on the final
// artifact.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "output validation: " + e.Detail }

// tail returns the last 20 lines of collaborator output for diagnostics.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	return strings.Join(lines, "\n")
}
