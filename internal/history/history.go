// Package history implements a bounded, immutable undo/redo timeline over
// canvas shape snapshots. Every operation returns a new History value and
// leaves the receiver untouched, so timelines can be stored, compared and
// replayed freely.
package history

import (
	"reflect"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// DefaultMaxSize bounds how many past snapshots a timeline retains.
const DefaultMaxSize = 50

// History is one editing timeline. Past holds older snapshots with the
// oldest first, Present is the current snapshot, Future holds undone
// snapshots with the next redo first.
type History struct {
	Past    [][]state.Shape
	Present []state.Shape
	Future  [][]state.Shape
}

// New starts a timeline at the provided snapshot with no past and no future.
// The snapshot is deep-copied, so later caller mutations cannot reach it.
func New(present []state.Shape) History {
	return History{
		Past:    [][]state.Shape{},
		Present: snapshotCopy(present),
		Future:  [][]state.Shape{},
	}
}

// Push records a new snapshot using the default retention bound.
func (h History) Push(snapshot []state.Shape) History {
	return h.PushBounded(snapshot, DefaultMaxSize)
}

// PushBounded records a new snapshot. Pushing a snapshot deep-equal to the
// present one returns the timeline unchanged. A push discards the future and
// drops the oldest past entries beyond maxSize.
func (h History) PushBounded(snapshot []state.Shape, maxSize int) History {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if snapshotsEqual(h.Present, snapshot) {
		return h
	}

	past := make([][]state.Shape, 0, len(h.Past)+1)
	past = append(past, h.Past...)
	past = append(past, h.Present)
	if len(past) > maxSize {
		past = past[len(past)-maxSize:]
	}

	return History{
		Past:    past,
		Present: snapshotCopy(snapshot),
		Future:  [][]state.Shape{},
	}
}

// Undo steps back one snapshot. At the bottom of the timeline it returns the
// timeline unchanged.
func (h History) Undo() History {
	if !h.CanUndo() {
		return h
	}

	lastIndex := len(h.Past) - 1
	past := make([][]state.Shape, lastIndex)
	copy(past, h.Past[:lastIndex])

	future := make([][]state.Shape, 0, len(h.Future)+1)
	future = append(future, h.Present)
	future = append(future, h.Future...)

	return History{
		Past:    past,
		Present: h.Past[lastIndex],
		Future:  future,
	}
}

// Redo steps forward one snapshot. With no future it returns the timeline
// unchanged.
func (h History) Redo() History {
	if !h.CanRedo() {
		return h
	}

	past := make([][]state.Shape, 0, len(h.Past)+1)
	past = append(past, h.Past...)
	past = append(past, h.Present)

	future := make([][]state.Shape, len(h.Future)-1)
	copy(future, h.Future[1:])

	return History{
		Past:    past,
		Present: h.Future[0],
		Future:  future,
	}
}

// Reset abandons the timeline and starts over at the provided snapshot,
// as when the edited content changes.
func (h History) Reset(present []state.Shape) History {
	return New(present)
}

// Clear drops past and future while keeping the present snapshot.
func (h History) Clear() History {
	return New(h.Present)
}

// CanUndo reports whether a past snapshot is available.
func (h History) CanUndo() bool {
	return len(h.Past) > 0
}

// CanRedo reports whether an undone snapshot is available.
func (h History) CanRedo() bool {
	return len(h.Future) > 0
}

// UndoSteps counts the available undo steps.
func (h History) UndoSteps() int {
	return len(h.Past)
}

// RedoSteps counts the available redo steps.
func (h History) RedoSteps() int {
	return len(h.Future)
}

func snapshotCopy(snapshot []state.Shape) []state.Shape {
	if snapshot == nil {
		return []state.Shape{}
	}
	return state.CloneShapes(snapshot)
}

func snapshotsEqual(current, candidate []state.Shape) bool {
	if len(current) != len(candidate) {
		return false
	}
	if len(current) == 0 {
		return true
	}
	return reflect.DeepEqual(current, candidate)
}
