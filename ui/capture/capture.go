// Package capture provides the live viewfinder widget.
package capture

import (
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"lapsecam/internal/camera"
	"lapsecam/internal/overlay"
	"lapsecam/pkg/geometry"
)

const refreshInterval = 33 * time.Millisecond

// Viewfinder shows the live camera feed with the alignment overlay
// composited on top. Guide lines are drag-editable while the overlay's
// editor is in edit mode.
type Viewfinder struct {
	widget.BaseWidget

	overlay *overlay.Overlay

	raster *fynecanvas.Raster

	mu        sync.Mutex
	session   *camera.Session
	lastFrame image.Image
	dragging  bool

	stopCh chan struct{}

	// Called after a drag adjusts the guide offsets.
	OnOffsetsChanged func()
}

// NewViewfinder creates a viewfinder over the given overlay engine.
func NewViewfinder(ov *overlay.Overlay) *Viewfinder {
	v := &Viewfinder{
		overlay: ov,
	}

	v.raster = fynecanvas.NewRaster(v.draw)
	v.raster.ScaleMode = fynecanvas.ImageScalePixels
	v.raster.SetMinSize(fyne.NewSize(360, 480))

	v.ExtendBaseWidget(v)
	return v
}

// SetSession attaches the camera session whose frames feed the view.
// A nil session shows the overlay over a blank background.
func (v *Viewfinder) SetSession(session *camera.Session) {
	v.mu.Lock()
	v.session = session
	v.lastFrame = nil
	v.mu.Unlock()
}

// SetOverlay swaps the overlay engine, e.g. after a project change.
func (v *Viewfinder) SetOverlay(ov *overlay.Overlay) {
	v.mu.Lock()
	v.overlay = ov
	v.mu.Unlock()
}

// Start begins periodic refresh of the feed.
func (v *Viewfinder) Start() {
	v.stopCh = make(chan struct{})
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-v.stopCh:
				return
			case <-ticker.C:
				v.raster.Refresh()
			}
		}
	}()
}

// Stop halts the refresh loop.
func (v *Viewfinder) Stop() {
	if v.stopCh != nil {
		close(v.stopCh)
		v.stopCh = nil
	}
}

func (v *Viewfinder) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// draw composites the most recent camera frame under the overlay. A
// stalled feed keeps showing the last frame rather than flickering.
func (v *Viewfinder) draw(w, h int) image.Image {
	v.mu.Lock()
	ov := v.overlay
	session := v.session
	frame := v.lastFrame
	v.mu.Unlock()

	if session != nil {
		select {
		case next := <-session.Frames():
			frame = next
			v.mu.Lock()
			v.lastFrame = next
			v.mu.Unlock()
		default:
		}
	}

	if ov == nil {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return ov.Render(w, h, frame)
}

// Dragged routes pointer drags to the guide editor. The first event of
// a gesture hit-tests the guide lines at the pointer position; later
// events apply deltas to the grabbed line.
func (v *Viewfinder) Dragged(ev *fyne.DragEvent) {
	v.mu.Lock()
	ov := v.overlay
	v.mu.Unlock()
	if ov == nil {
		return
	}

	editor := ov.Editor()
	if !editor.Editing() {
		return
	}

	size := v.Size()
	viewport := geometry.NewSize(float64(size.Width), float64(size.Height))

	if !v.dragging {
		start := geometry.Point2D{
			X: float64(ev.Position.X - ev.Dragged.DX),
			Y: float64(ev.Position.Y - ev.Dragged.DY),
		}
		if !editor.DragStart(start, viewport) {
			return
		}
		v.dragging = true
	}

	delta := geometry.Point2D{
		X: float64(ev.Dragged.DX),
		Y: float64(ev.Dragged.DY),
	}
	editor.DragUpdate(delta, viewport)

	if v.OnOffsetsChanged != nil {
		v.OnOffsetsChanged()
	}
	v.raster.Refresh()
}

// DragEnd releases the grabbed guide line.
func (v *Viewfinder) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging = false

	v.mu.Lock()
	ov := v.overlay
	v.mu.Unlock()
	if ov != nil {
		ov.Editor().DragEnd()
	}
	v.raster.Refresh()
}
