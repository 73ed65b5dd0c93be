// Package guide implements the alignment guide model: normalized guide
// offsets, grid modes, the layout math that places guide lines and the
// ghost reference image, and the drag editor used to adjust guides over
// the live preview.
package guide

// Orientation is the device/display orientation. Guide offsets are
// persisted independently per orientation.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "Portrait"
	case Landscape:
		return "Landscape"
	default:
		return "Unknown"
	}
}

// Key returns the stable identifier used in the settings store.
func (o Orientation) Key() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// Offset holds the normalized guide coordinates for one orientation.
// X is the half-distance between the two vertical guide lines as a
// fraction of viewport width, measured from center. Y is the horizontal
// guide line position as a fraction of viewport height. Both components
// are clamped to [0,1] at every construction and mutation.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultOffset is used when a project has no persisted offsets yet.
var DefaultOffset = Offset{X: 0.2, Y: 0.4}

// NewOffset creates an Offset with both components clamped to [0,1].
func NewOffset(x, y float64) Offset {
	return Offset{X: clamp01(x), Y: clamp01(y)}
}

// ShiftX returns the offset with dx added to X, clamped.
func (o Offset) ShiftX(dx float64) Offset {
	return Offset{X: clamp01(o.X + dx), Y: o.Y}
}

// ShiftY returns the offset with dy added to Y, clamped.
func (o Offset) ShiftY(dy float64) Offset {
	return Offset{X: o.X, Y: clamp01(o.Y + dy)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
