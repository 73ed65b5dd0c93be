package guide

// GridMode selects which overlay elements render over the live preview.
type GridMode int

const (
	ModeNone      GridMode = iota // no overlay
	ModeGrid                      // guide lines only
	ModeGhost                     // ghost reference only
	ModeGhostGrid                 // ghost reference plus guide lines
)

const modeCount = 4

func (m GridMode) String() string {
	switch m {
	case ModeNone:
		return "None"
	case ModeGrid:
		return "Grid"
	case ModeGhost:
		return "Ghost"
	case ModeGhostGrid:
		return "Ghost+Grid"
	default:
		return "Unknown"
	}
}

// ShowsGrid reports whether guide lines render in this mode.
func (m GridMode) ShowsGrid() bool {
	return m == ModeGrid || m == ModeGhostGrid
}

// ShowsGhost reports whether the ghost reference renders in this mode.
func (m GridMode) ShowsGhost() bool {
	return m == ModeGhost || m == ModeGhostGrid
}

// Next returns the mode that follows m in the cycle. With a ghost
// reference available all four modes cycle in order; without one only
// None and Grid alternate, so the ghost modes stay unreachable.
func (m GridMode) Next(hasGhost bool) GridMode {
	if !hasGhost {
		if m == ModeNone {
			return ModeGrid
		}
		return ModeNone
	}
	return (m + 1) % modeCount
}

// ModeFromIndex converts a persisted index back to a GridMode. Out of
// range values fall back to ModeNone.
func ModeFromIndex(i int) GridMode {
	if i < 0 || i >= modeCount {
		return ModeNone
	}
	return GridMode(i)
}
