package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"lapsecam/pkg/geometry"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	DrawBackground(img, c)
	return img
}

// placement builds the uniform scale-then-translate transform the
// ghost placement produces.
func placement(x, y, scale float64) geometry.AffineTransform {
	return geometry.Translation(x, y).Compose(geometry.Scale(scale, scale))
}

func TestDrawVerticalLineClipped(t *testing.T) {
	dst := solid(100, 50, color.RGBA{A: 255})

	// Off-canvas line touches nothing.
	DrawVerticalLine(dst, -50, color.RGBA{R: 255, A: 255}, 3)
	for y := 0; y < 50; y++ {
		assert.Equal(t, uint8(0), dst.RGBAAt(0, y).R)
	}

	DrawVerticalLine(dst, 40, color.RGBA{R: 255, A: 255}, 1)
	for y := 0; y < 50; y++ {
		assert.Equal(t, uint8(255), dst.RGBAAt(40, y).R)
	}
	assert.Equal(t, uint8(0), dst.RGBAAt(41, 25).R)
}

func TestDrawHorizontalLineThickness(t *testing.T) {
	dst := solid(100, 50, color.RGBA{A: 255})
	DrawHorizontalLine(dst, 20, color.RGBA{G: 255, A: 255}, 3)

	for _, y := range []int{19, 20, 21} {
		assert.Equal(t, uint8(255), dst.RGBAAt(50, y).G, "row %d", y)
	}
	assert.Equal(t, uint8(0), dst.RGBAAt(50, 17).G)
	assert.Equal(t, uint8(0), dst.RGBAAt(50, 23).G)
}

func TestDrawGhostBlendsWithOpacity(t *testing.T) {
	dst := solid(40, 40, color.RGBA{A: 255})
	ref := solid(10, 10, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	DrawGhost(dst, ref, placement(10, 10, 2), 0.5)

	// Inside the placement: blended halfway between black and the ref
	// gray.
	got := dst.RGBAAt(20, 20)
	assert.InDelta(t, 100, int(got.R), 2)

	// Outside the placement: untouched.
	assert.Equal(t, uint8(0), dst.RGBAAt(5, 5).R)
}

func TestDrawGhostOffCanvasRect(t *testing.T) {
	dst := solid(40, 40, color.RGBA{A: 255})
	ref := solid(10, 10, color.RGBA{R: 200, A: 255})

	// Entirely off-canvas placements are skipped without panicking.
	DrawGhost(dst, ref, placement(-100, -100, 2), 0.5)
	DrawGhost(dst, ref, placement(1000, 1000, 2), 0.5)

	// Partially overlapping placement only touches the overlap.
	DrawGhost(dst, ref, placement(30, 30, 2), 1.0)
	assert.Equal(t, uint8(200), dst.RGBAAt(35, 35).R)
	assert.Equal(t, uint8(0), dst.RGBAAt(20, 20).R)
}

func TestDrawGhostNilAndZeroCases(t *testing.T) {
	dst := solid(10, 10, color.RGBA{A: 255})
	DrawGhost(dst, nil, placement(0, 0, 2.5), 0.5)
	// A zero scale is singular and paints nothing.
	DrawGhost(dst, solid(4, 4, color.RGBA{R: 255, A: 255}), placement(0, 0, 0), 0.5)
	DrawGhost(dst, solid(4, 4, color.RGBA{R: 255, A: 255}), placement(0, 0, 2.5), 0)
	assert.Equal(t, uint8(0), dst.RGBAAt(5, 5).R)
}

func TestDrawFrameScalesToFill(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	frame := solid(10, 10, color.RGBA{B: 255, A: 255})

	DrawFrame(dst, frame)
	assert.Equal(t, uint8(255), dst.RGBAAt(0, 0).B)
	assert.Equal(t, uint8(255), dst.RGBAAt(19, 19).B)
}
