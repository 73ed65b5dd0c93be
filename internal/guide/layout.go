package guide

import (
	"errors"

	"lapsecam/pkg/geometry"
)

var (
	// ErrDegenerateLandmark is returned when the stored landmark X offset
	// is zero, which makes the ghost scale undefined. Callers skip ghost
	// rendering for the frame; this is never fatal to the session.
	ErrDegenerateLandmark = errors.New("landmark x offset is zero")

	// ErrDegenerateViewport is returned when the viewport or reference
	// image has no area. Callers skip rendering for the frame.
	ErrDegenerateViewport = errors.New("viewport or reference image has no area")
)

// Layout holds the pixel positions of the guide lines for one viewport.
type Layout struct {
	LeftX       float64
	RightX      float64
	HorizontalY float64
}

// ComputeLayout maps a normalized offset onto viewport pixels. The two
// vertical lines sit at centerX +/- width*X; the horizontal line at
// height*Y. At X=1 the lines land on the viewport edges, which is a
// boundary rather than an error.
func ComputeLayout(off Offset, viewport geometry.Size) Layout {
	centerX := viewport.Width / 2
	return Layout{
		LeftX:       centerX - viewport.Width*off.X,
		RightX:      centerX + viewport.Width*off.X,
		HorizontalY: viewport.Height * off.Y,
	}
}

// PlaceGhost computes the destination rectangle for a stabilized
// reference image so that its stored landmark line lands exactly on the
// live horizontal guide and its landmark half-width matches the live
// guide separation.
//
// The scale equates the guide half-width in pixels with the reference
// landmark half-width in pixels:
//
//	scale = (viewportWidth * off.X) / (refWidth * landmark.X)
//
// The vertical shift registers the reference landmark line with the
// live horizontal guide line.
func PlaceGhost(off Offset, viewport, ref geometry.Size, landmark Offset) (geometry.Rect, error) {
	if viewport.Empty() || ref.Empty() {
		return geometry.Rect{}, ErrDegenerateViewport
	}
	if landmark.X == 0 {
		return geometry.Rect{}, ErrDegenerateLandmark
	}

	scale := (viewport.Width * off.X) / (ref.Width * landmark.X)
	scaledHeight := ref.Height * scale

	eyeOffsetInGhost := (0.5 - landmark.Y) * scaledHeight
	eyeOffsetInGuide := (0.5 - off.Y) * viewport.Height
	verticalShift := eyeOffsetInGuide - eyeOffsetInGhost

	center := geometry.NewPoint2D(viewport.Width/2, viewport.Height/2-verticalShift)
	size := geometry.NewSize(ref.Width*scale, scaledHeight)
	return geometry.RectCenteredAt(center, size), nil
}

// GhostTransform returns the ghost placement as an affine transform
// mapping reference-image coordinates into viewport coordinates.
func GhostTransform(off Offset, viewport, ref geometry.Size, landmark Offset) (geometry.AffineTransform, error) {
	rect, err := PlaceGhost(off, viewport, ref, landmark)
	if err != nil {
		return geometry.Identity(), err
	}
	scale := rect.Width / ref.Width
	return geometry.Translation(rect.X, rect.Y).Compose(geometry.Scale(scale, scale)), nil
}
