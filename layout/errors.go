package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPlacement is returned by Draw when nothing was placed since the
	// last Reset.
	ErrNoPlacement = errors.New("layout: draw without a preceding place")
	// ErrAlreadyDrawn is returned by a second Draw of the same chunk.
	ErrAlreadyDrawn = errors.New("layout: chunk already drawn")
)

// ContentError reports markup that cannot be turned into placeable content.
type ContentError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ContentError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("content error (line %d): %s", e.Line, msg)
	}
	return "content error: " + msg
}

func (e *ContentError) Unwrap() error { return e.Err }

// GeometryError reports a degenerate rectangle where a usable one is required.
type GeometryError struct {
	Op   string
	Rect Rect
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: degenerate rectangle (%g,%g,%g,%g)", e.Op, e.Rect.X0, e.Rect.Y0, e.Rect.X1, e.Rect.Y1)
}

// SearchExhaustedError is returned when a parameter search runs out of its
// call or doubling budget before bracketing a solution.
type SearchExhaustedError struct {
	NumCalls  int
	Doublings int
	LastParam float64
}

func (e *SearchExhaustedError) Error() string {
	return fmt.Sprintf("parameter search exhausted after %d calls (%d doublings, last parameter %g)", e.NumCalls, e.Doublings, e.LastParam)
}

// NonConvergenceError is returned when generated content keeps changing
// beyond the iteration budget.
type NonConvergenceError struct {
	Iterations int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("content did not stabilize after %d iterations", e.Iterations)
}

// RegionBudgetError is returned when pagination consumes more regions than
// allowed without exhausting the content.
type RegionBudgetError struct {
	Regions int
}

func (e *RegionBudgetError) Error() string {
	return fmt.Sprintf("content not exhausted after %d regions", e.Regions)
}
