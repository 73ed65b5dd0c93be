package guide

import (
	"math"
	"sync"

	"lapsecam/pkg/geometry"
)

// HitTolerance is the maximum pointer distance, in viewport pixels, at
// which a gesture start grabs a guide line.
const HitTolerance = 20.0

// DragTarget identifies which guide line a gesture is moving.
type DragTarget int

const (
	TargetNone DragTarget = iota
	TargetLeftLine
	TargetRightLine
	TargetHorizontal
)

func (t DragTarget) String() string {
	switch t {
	case TargetLeftLine:
		return "LeftLine"
	case TargetRightLine:
		return "RightLine"
	case TargetHorizontal:
		return "Horizontal"
	default:
		return "None"
	}
}

// Editor interprets pointer gestures into guide offset mutations. The
// offset mutates immediately during a drag so the overlay previews the
// edit live; persistence only happens when the owner saves. The editor
// keeps a snapshot of the offset taken when edit mode begins, so
// leaving edit mode without saving restores the persisted value.
//
// Gestures arrive on the UI event goroutine while the render loop
// reads the offset and target, so all state sits behind a mutex.
type Editor struct {
	mu       sync.Mutex
	offset   Offset
	snapshot Offset
	editing  bool
	target   DragTarget
}

// NewEditor creates an editor seeded with the persisted offset.
func NewEditor(initial Offset) *Editor {
	return &Editor{offset: initial}
}

// Offset returns the current (possibly mid-edit) offset.
func (e *Editor) Offset() Offset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// SetOffset replaces the current offset, e.g. after an orientation or
// project change reloads persisted values. Any active gesture is reset.
func (e *Editor) SetOffset(off Offset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = off
	e.target = TargetNone
	if e.editing {
		e.snapshot = off
	}
}

// Editing reports whether edit mode is active.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Target returns the line currently being dragged, or TargetNone.
func (e *Editor) Target() DragTarget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// BeginEdit enters edit mode and snapshots the offset for cancel.
func (e *Editor) BeginEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		return
	}
	e.editing = true
	e.snapshot = e.offset
	e.target = TargetNone
}

// SaveEdit exits edit mode and returns the offset to persist.
func (e *Editor) SaveEdit() Offset {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = false
	e.target = TargetNone
	return e.offset
}

// CancelEdit exits edit mode and restores the pre-edit offset.
func (e *Editor) CancelEdit() Offset {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		e.offset = e.snapshot
	}
	e.editing = false
	e.target = TargetNone
	return e.offset
}

// DragStart hit-tests a gesture start point against the guide lines and
// begins a drag when one is within HitTolerance. Vertical lines take
// priority over the horizontal line; between the two verticals the
// nearer one wins. Returns false when nothing qualified.
func (e *Editor) DragStart(p geometry.Point2D, viewport geometry.Size) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing || viewport.Empty() {
		return false
	}

	layout := ComputeLayout(e.offset, viewport)
	dLeft := math.Abs(p.X - layout.LeftX)
	dRight := math.Abs(p.X - layout.RightX)

	if dLeft <= HitTolerance || dRight <= HitTolerance {
		if dRight <= dLeft {
			e.target = TargetRightLine
		} else {
			e.target = TargetLeftLine
		}
		return true
	}

	if math.Abs(p.Y-layout.HorizontalY) <= HitTolerance {
		e.target = TargetHorizontal
		return true
	}

	e.target = TargetNone
	return false
}

// DragUpdate applies a pointer delta to the active drag. Deltas on the
// right line add to X, on the left line subtract (the lines stay
// symmetric about center), and on the horizontal line add to Y. The
// result clamps to [0,1] regardless of delta magnitude or sign.
func (e *Editor) DragUpdate(delta geometry.Point2D, viewport geometry.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if viewport.Empty() {
		return
	}

	switch e.target {
	case TargetRightLine:
		e.offset = e.offset.ShiftX(delta.X / viewport.Width)
	case TargetLeftLine:
		e.offset = e.offset.ShiftX(-delta.X / viewport.Width)
	case TargetHorizontal:
		e.offset = e.offset.ShiftY(delta.Y / viewport.Height)
	}
}

// DragEnd unconditionally ends the active gesture.
func (e *Editor) DragEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = TargetNone
}
