// Package overlay composes the capture preview: grid guide lines and
// the ghost reference image drawn over the live camera frame. It owns
// the grid-mode selection, the per-orientation guide offsets (through
// the drag editor), and the ghost reference lifecycle.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lapsecam/internal/guide"
	imagex "lapsecam/internal/image"
	"lapsecam/internal/store"
	"lapsecam/pkg/colorutil"
	"lapsecam/pkg/geometry"
)

const (
	ghostOpacity  = 0.5
	lineThickness = 2
)

// Settings is the slice of the persistence layer the overlay needs.
type Settings interface {
	LoadOffset(projectID int64, o guide.Orientation) (guide.Offset, error)
	SaveOffset(projectID int64, o guide.Orientation, off guide.Offset) error
	LoadGridMode(projectID int64) (int, error)
	SaveGridMode(projectID int64, mode int) error
	LatestStabilizedPhoto(projectID int64, o guide.Orientation) (*store.StabilizedPhoto, error)
}

// GhostReference is the decoded most-recent stabilized photo for the
// active project and orientation, with the landmark offset stored at
// stabilization time. The layer carries the ghost opacity.
type GhostReference struct {
	Layer    *imagex.Layer
	Landmark guide.Offset
	TakenAt  time.Time
}

// Path returns the stabilized photo's file path.
func (g *GhostReference) Path() string {
	return g.Layer.Path
}

// Overlay drives the per-frame paint pass for one project/orientation
// context. The watcher goroutine can trigger reloads concurrently with
// UI rendering, so state is guarded by a mutex.
type Overlay struct {
	mu          sync.Mutex
	settings    Settings
	projectID   int64
	orientation guide.Orientation
	mode        guide.GridMode
	editor      *guide.Editor
	ghost       *GhostReference

	watcher       *fsnotify.Watcher
	watcherDone   chan struct{}
	onGhostReload func()

	logger *slog.Logger
}

// New loads the persisted grid mode, offsets, and ghost reference for
// the project and orientation.
func New(settings Settings, projectID int64, orientation guide.Orientation, logger *slog.Logger) (*Overlay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Overlay{
		settings:    settings,
		projectID:   projectID,
		orientation: orientation,
		logger:      logger,
	}

	modeIdx, err := settings.LoadGridMode(projectID)
	if err != nil {
		return nil, fmt.Errorf("load grid mode: %w", err)
	}
	o.mode = guide.ModeFromIndex(modeIdx)

	off, err := settings.LoadOffset(projectID, orientation)
	if err != nil {
		return nil, fmt.Errorf("load offsets: %w", err)
	}
	o.editor = guide.NewEditor(off)

	if err := o.Reload(); err != nil {
		// A missing or unreadable stabilized set is not fatal; the
		// ghost modes simply stay unreachable.
		logger.Warn("ghost reference unavailable", "err", err)
	}
	return o, nil
}

// Editor returns the drag editor for the current offsets.
func (o *Overlay) Editor() *guide.Editor {
	return o.editor
}

// Mode returns the active grid mode.
func (o *Overlay) Mode() guide.GridMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// HasGhost reports whether a ghost reference is loaded.
func (o *Overlay) HasGhost() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ghost != nil
}

// Ghost returns the current ghost reference, or nil.
func (o *Overlay) Ghost() *GhostReference {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ghost
}

// CycleGridMode advances to the next grid mode and persists the index.
// A store failure keeps the in-memory mode so the overlay still
// cycles; the returned error reports the failed persistence.
func (o *Overlay) CycleGridMode() (guide.GridMode, error) {
	o.mu.Lock()
	o.mode = o.mode.Next(o.ghost != nil)
	mode := o.mode
	o.mu.Unlock()

	if err := o.settings.SaveGridMode(o.projectID, int(mode)); err != nil {
		return mode, fmt.Errorf("save grid mode: %w", err)
	}
	return mode, nil
}

// SaveOffsets persists the editor's current offset for the active
// orientation and exits edit mode.
func (o *Overlay) SaveOffsets() error {
	off := o.editor.SaveEdit()
	if err := o.settings.SaveOffset(o.projectID, o.orientation, off); err != nil {
		return fmt.Errorf("save offsets: %w", err)
	}
	return nil
}

// SetOrientation switches the orientation context, reloading the
// persisted offsets and the ghost reference for it.
func (o *Overlay) SetOrientation(orientation guide.Orientation) error {
	o.mu.Lock()
	o.orientation = orientation
	o.mu.Unlock()

	off, err := o.settings.LoadOffset(o.projectID, orientation)
	if err != nil {
		return fmt.Errorf("load offsets: %w", err)
	}
	o.editor.SetOffset(off)
	return o.Reload()
}

// Reload fetches the latest stabilized photo for the active context and
// replaces the ghost reference. The previous decoded bitmap is dropped
// for collection. An empty stabilized set clears the ghost.
func (o *Overlay) Reload() error {
	o.mu.Lock()
	projectID, orientation := o.projectID, o.orientation
	o.mu.Unlock()

	photo, err := o.settings.LatestStabilizedPhoto(projectID, orientation)
	if err != nil {
		return fmt.Errorf("latest stabilized photo: %w", err)
	}

	var ghost *GhostReference
	if photo != nil {
		layer, err := imagex.Load(photo.Path)
		if err != nil {
			return fmt.Errorf("decode stabilized photo: %w", err)
		}
		layer.Opacity = ghostOpacity
		ghost = &GhostReference{
			Layer:    layer,
			Landmark: photo.Landmark,
			TakenAt:  photo.TakenAt,
		}
	}

	o.mu.Lock()
	o.ghost = ghost
	o.mu.Unlock()

	if ghost != nil {
		o.logger.Debug("ghost reference loaded", "path", ghost.Path())
	}
	return nil
}

// Close stops the stabilized-set watcher and releases the ghost bitmap.
func (o *Overlay) Close() {
	o.stopWatcher()
	o.mu.Lock()
	o.ghost = nil
	o.mu.Unlock()
}

// Render builds one preview frame: live camera frame scaled to fill,
// then the ghost reference, then the guide lines. Geometry failures
// (degenerate landmark, zero sizes) skip the affected element and never
// fail the frame.
func (o *Overlay) Render(w, h int, frame image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	imagex.DrawBackground(dst, colorutil.Black)
	imagex.DrawFrame(dst, frame)

	o.mu.Lock()
	mode := o.mode
	ghost := o.ghost
	o.mu.Unlock()

	viewport := geometry.NewSize(float64(w), float64(h))
	off := o.editor.Offset()

	if mode.ShowsGhost() && ghost != nil && ghost.Layer.Visible {
		tr, err := guide.GhostTransform(off, viewport, ghost.Layer.Size(), ghost.Landmark)
		if err == nil {
			imagex.DrawGhost(dst, ghost.Layer.Image, tr, ghost.Layer.Opacity)
		} else {
			o.logger.Debug("ghost skipped", "err", err)
		}
	}

	if mode.ShowsGrid() || o.editor.Editing() {
		o.drawGuideLines(dst, off, viewport)
	}

	return dst
}

// drawGuideLines paints the vertical pair and the horizontal line. The
// line being dragged renders highlighted; the others dim while a drag
// is active.
func (o *Overlay) drawGuideLines(dst *image.RGBA, off guide.Offset, viewport geometry.Size) {
	layout := guide.ComputeLayout(off, viewport)
	target := o.editor.Target()

	lineColor := func(t guide.DragTarget) color.RGBA {
		if target == guide.TargetNone {
			return colorutil.White
		}
		if t == target {
			return colorutil.Yellow
		}
		return colorutil.Dim(colorutil.White, 0.4)
	}

	imagex.DrawVerticalLine(dst, int(layout.LeftX), lineColor(guide.TargetLeftLine), lineThickness)
	imagex.DrawVerticalLine(dst, int(layout.RightX), lineColor(guide.TargetRightLine), lineThickness)
	imagex.DrawHorizontalLine(dst, int(layout.HorizontalY), lineColor(guide.TargetHorizontal), lineThickness)
}
