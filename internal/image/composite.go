package image

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"lapsecam/pkg/geometry"
)

// DrawBackground fills dst with a solid color.
func DrawBackground(dst *image.RGBA, c color.Color) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
}

// DrawFrame draws a camera frame into dst, scaling it to fill the whole
// destination. The preview viewport and the frame rarely share exact
// dimensions, so every frame goes through the scaler.
func DrawFrame(dst *image.RGBA, frame image.Image) {
	if frame == nil {
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
}

// DrawGhost composites src into dst through the placement transform
// with the given opacity. The placement may extend past dst; only the
// overlapping region is touched. A singular transform (zero scale)
// paints nothing.
func DrawGhost(dst *image.RGBA, src image.Image, tr geometry.AffineTransform, opacity float64) {
	if src == nil || opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	if _, invertible := tr.Inverse(); !invertible {
		return
	}

	srcBounds := src.Bounds()
	topLeft := tr.Apply(geometry.NewPoint2D(0, 0))
	bottomRight := tr.Apply(geometry.NewPoint2D(float64(srcBounds.Dx()), float64(srcBounds.Dy())))
	destRect := image.Rect(int(topLeft.X), int(topLeft.Y), int(bottomRight.X), int(bottomRight.Y))
	visible := destRect.Intersect(dst.Bounds())
	if visible.Empty() {
		return
	}

	// Map the reference through the transform into a viewport-sized
	// scratch first, then blend only the visible part. Ghost placement
	// regularly extends past the viewport, so the intermediate keeps
	// the scale consistent with the off-screen portion.
	scratch := image.NewRGBA(dst.Bounds())
	matrix := f64.Aff3{tr.A, tr.B, tr.TX, tr.C, tr.D, tr.TY}
	xdraw.ApproxBiLinear.Transform(scratch, matrix, src, srcBounds, xdraw.Src, nil)

	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		for x := visible.Min.X; x < visible.Max.X; x++ {
			srcColor := scratch.RGBAAt(x, y)
			effectiveAlpha := float64(srcColor.A) / 255.0 * opacity
			if effectiveAlpha <= 0.001 {
				continue
			}

			if effectiveAlpha >= 0.999 {
				dst.SetRGBA(x, y, color.RGBA{srcColor.R, srcColor.G, srcColor.B, 255})
				continue
			}

			dstColor := dst.RGBAAt(x, y)
			invAlpha := 1 - effectiveAlpha
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(srcColor.R)*effectiveAlpha + float64(dstColor.R)*invAlpha),
				G: uint8(float64(srcColor.G)*effectiveAlpha + float64(dstColor.G)*invAlpha),
				B: uint8(float64(srcColor.B)*effectiveAlpha + float64(dstColor.B)*invAlpha),
				A: 255,
			})
		}
	}
}

// DrawVerticalLine draws a vertical guide line spanning the full height
// of dst. Lines outside the bounds are clipped away entirely.
func DrawVerticalLine(dst *image.RGBA, x int, col color.RGBA, thickness int) {
	bounds := dst.Bounds()
	DrawLine(dst, x, bounds.Min.Y, x, bounds.Max.Y-1, col, thickness)
}

// DrawHorizontalLine draws a horizontal guide line spanning the full
// width of dst.
func DrawHorizontalLine(dst *image.RGBA, y int, col color.RGBA, thickness int) {
	bounds := dst.Bounds()
	DrawLine(dst, bounds.Min.X, y, bounds.Max.X-1, y, col, thickness)
}

// DrawLine draws a line between two points using Bresenham's algorithm
// with a square brush of the given thickness.
func DrawLine(dst *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := dst.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					dst.SetRGBA(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}
