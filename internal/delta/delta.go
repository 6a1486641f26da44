// Package delta computes line-level updates between two captures of the same
// pane. Growth is only treated as incremental when the previous capture is an
// exact prefix of the current one; every other change is sent whole.
package delta

import "strings"

// Kind identifies the shape of a Result.
type Kind int

const (
	NoChange Kind = iota
	Reset
	Append
)

// String returns the wire name of the kind. NoChange is never sent.
func (k Kind) String() string {
	switch k {
	case Reset:
		return "reset"
	case Append:
		return "delta"
	default:
		return "noop"
	}
}

// Result is the outcome of comparing two captures. Lines holds the full
// content for Reset and only the new tail for Append.
type Result struct {
	Kind  Kind
	Lines []string
}

// Changed reports whether the result carries anything to send.
func (r Result) Changed() bool {
	return r.Kind != NoChange
}

// Compute returns the update that turns prev into curr.
func Compute(prev, curr []string) Result {
	if len(prev) == 0 && len(curr) == 0 {
		return Result{Kind: NoChange}
	}
	if len(prev) == 0 {
		return Result{Kind: Reset, Lines: curr}
	}
	if equal(prev, curr) {
		return Result{Kind: NoChange}
	}
	if len(curr) > len(prev) && equal(curr[:len(prev)], prev) {
		return Result{Kind: Append, Lines: curr[len(prev):]}
	}
	// Shrink, redraw, or scrollback eviction. A common-suffix match would let
	// some of these become appends, but the client state would then depend
	// on lines it may never have seen.
	return Result{Kind: Reset, Lines: curr}
}

// minScrolledOverlap is how many lines a scrolled floor must share with a
// capture before the shared lines are treated as the floor rather than as a
// coincidence such as a repeated prompt.
const minScrolledOverlap = 2

// CutAfter returns the part of lines that follows floor. The floor may have
// scrolled partially out of lines, so the longest suffix of floor that
// overlaps the start of lines is used as the cut point; a suffix other than
// the whole floor must overlap by at least minScrolledOverlap lines. When
// lines is entirely covered by the floor (the pane shrank) nothing is
// returned. When nothing overlaps, all of lines is newer than the floor.
func CutAfter(floor, lines []string) []string {
	for start := 0; start < len(floor); start++ {
		tail := floor[start:]
		n := min(len(tail), len(lines))
		if start > 0 && n < minScrolledOverlap {
			break
		}
		if equal(lines[:n], tail[:n]) {
			return lines[n:]
		}
	}
	return lines
}

// SplitLines splits captured text into lines the same way for every
// caller: a trailing newline does not produce an extra empty line and
// carriage returns are dropped.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
