// Package camera owns the live camera feed: lens enumeration, the
// session state machine around a hardware handle, frame delivery to the
// preview, and still capture.
package camera

import (
	"errors"
	"image"
)

var (
	// ErrHardwareUnavailable means no cameras were enumerated. Fatal to
	// session start; surfaced to the caller, never retried automatically.
	ErrHardwareUnavailable = errors.New("no cameras available")

	// ErrLensIndexInvalid means the requested lens index is out of
	// range. Programming-level misuse, not retried.
	ErrLensIndexInvalid = errors.New("lens index out of range")

	// ErrNotStreaming means an operation that requires a live feed was
	// issued while the session was not streaming.
	ErrNotStreaming = errors.New("session is not streaming")

	// ErrCaptureFailed means the hardware returned no still frame.
	ErrCaptureFailed = errors.New("capture returned no image")
)

// Direction indicates which way a lens faces.
type Direction int

const (
	DirectionBack Direction = iota
	DirectionFront
)

func (d Direction) String() string {
	if d == DirectionFront {
		return "Front"
	}
	return "Back"
}

// Lens describes one enumerated camera.
type Lens struct {
	Index     int
	Direction Direction
}

// ExposureRange is the hardware-reported exposure offset range.
type ExposureRange struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r ExposureRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Device is a single open camera hardware handle. A Session owns at
// most one Device at a time and closes it before opening another.
type Device interface {
	// Read returns the next preview frame.
	Read() (image.Image, error)

	// Still returns a single full-quality frame for capture.
	Still() (image.Image, error)

	// ExposureRange reports the supported exposure offsets.
	ExposureRange() ExposureRange

	// SetExposure applies an exposure offset. The caller clamps.
	SetExposure(v float64) error

	// Close releases the hardware handle.
	Close() error
}

// OpenFunc opens a device for the lens at the given index.
type OpenFunc func(lens int) (Device, error)
