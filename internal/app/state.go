// Package app provides application lifecycle management, state, and events.
package app

import (
	"fmt"
	goimage "image"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"lapsecam/internal/camera"
	"lapsecam/internal/guide"
	"lapsecam/internal/overlay"
	"lapsecam/internal/project"
	"lapsecam/internal/store"
)

// State holds the application state including the current project,
// camera session, and overlay engine.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Project     *project.File

	Store   *store.Store
	Session *camera.Session
	Overlay *overlay.Overlay

	orientation guide.Orientation
	flash       bool

	logger *slog.Logger

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventFeedReady
	EventLensChanged
	EventPhotoCaptured
	EventFirstPhoto
	EventOffsetsSaved
	EventGridModeChanged
	EventGhostReloaded
	EventFlashChanged
	EventOrientationChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates application state around an opened settings store.
func NewState(st *store.Store, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		Store:       st,
		orientation: guide.Portrait,
		logger:      logger,
		listeners:   make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadProject loads a project file, builds its overlay engine, and
// starts watching the stabilized directory for ghost updates.
func (s *State) LoadProject(path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if err := proj.EnsureDirs(path); err != nil {
		return fmt.Errorf("prepare project dirs: %w", err)
	}

	s.mu.RLock()
	orientation := s.orientation
	s.mu.RUnlock()

	ov, err := overlay.New(s.Store, proj.ID, orientation, s.logger)
	if err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	ov.OnGhostReload(func() { s.Emit(EventGhostReloaded, nil) })
	if err := ov.WatchStabilized(proj.StabilizedDir(path)); err != nil {
		s.logger.Warn("stabilized watch unavailable", "err", err)
	}

	flash, err := s.Store.FlashEnabled()
	if err != nil {
		s.logger.Warn("flash setting unavailable", "err", err)
	}

	s.mu.Lock()
	if s.Overlay != nil {
		s.Overlay.Close()
	}
	s.ProjectPath = path
	s.Project = proj
	s.Overlay = ov
	s.flash = flash
	s.mu.Unlock()

	s.Emit(EventProjectLoaded, path)
	return nil
}

// AttachSession wires a camera session's feed and lens callbacks into
// the event bus.
func (s *State) AttachSession(session *camera.Session) {
	session.OnFeedReady(func() { s.Emit(EventFeedReady, nil) })
	session.OnLensDirectionChanged(func(d camera.Direction) { s.Emit(EventLensChanged, d) })

	s.mu.Lock()
	s.Session = session
	s.mu.Unlock()
}

// CapturePhoto takes a still through the active lens, writes it to the
// project's raw directory, and records it in the store. The first
// photo of a project additionally emits EventFirstPhoto.
func (s *State) CapturePhoto() (string, error) {
	s.mu.RLock()
	session := s.Session
	proj := s.Project
	projectPath := s.ProjectPath
	s.mu.RUnlock()

	if session == nil || proj == nil {
		return "", fmt.Errorf("no active capture session")
	}

	takenAt := time.Now()
	path := proj.PhotoPath(projectPath, takenAt)

	var first bool
	err := session.Capture(func(img goimage.Image) error {
		if err := writePNG(path, img); err != nil {
			return err
		}
		count, err := s.Store.CaptureCount(proj.ID)
		if err != nil {
			return err
		}
		first = count == 0
		return s.Store.InsertCapture(proj.ID, takenAt, path)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("photo captured", "path", path)
	if first {
		s.Emit(EventFirstPhoto, path)
	}
	s.Emit(EventPhotoCaptured, path)
	return path, nil
}

// CycleGridMode advances the overlay grid mode. The mode change takes
// effect even when persistence fails; the error reports the failed
// save so the caller can surface it.
func (s *State) CycleGridMode() (guide.GridMode, error) {
	s.mu.RLock()
	ov := s.Overlay
	s.mu.RUnlock()
	if ov == nil {
		return guide.ModeNone, nil
	}
	mode, err := ov.CycleGridMode()
	s.Emit(EventGridModeChanged, mode)
	return mode, err
}

// SaveGuideOffsets commits the drag editor's offsets to the store and
// leaves edit mode.
func (s *State) SaveGuideOffsets() error {
	s.mu.RLock()
	ov := s.Overlay
	s.mu.RUnlock()
	if ov == nil {
		return fmt.Errorf("no overlay loaded")
	}
	if err := ov.SaveOffsets(); err != nil {
		return err
	}
	s.Emit(EventOffsetsSaved, ov.Editor().Offset())
	return nil
}

// SetOrientation switches the overlay's offset and ghost context.
func (s *State) SetOrientation(o guide.Orientation) error {
	s.mu.Lock()
	s.orientation = o
	ov := s.Overlay
	s.mu.Unlock()

	if ov != nil {
		if err := ov.SetOrientation(o); err != nil {
			return err
		}
	}
	s.Emit(EventOrientationChanged, o)
	return nil
}

// FlashEnabled reports the persisted flash preference.
func (s *State) FlashEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flash
}

// ToggleFlash flips the flash preference and persists it.
func (s *State) ToggleFlash() (bool, error) {
	s.mu.Lock()
	s.flash = !s.flash
	flash := s.flash
	s.mu.Unlock()

	if err := s.Store.SetFlashEnabled(flash); err != nil {
		return flash, err
	}
	s.Emit(EventFlashChanged, flash)
	return flash, nil
}

// Close releases the session, overlay, and store.
func (s *State) Close() {
	s.mu.Lock()
	session := s.Session
	ov := s.Overlay
	st := s.Store
	s.Session = nil
	s.Overlay = nil
	s.mu.Unlock()

	if session != nil {
		session.Stop()
	}
	if ov != nil {
		ov.Close()
	}
	if st != nil {
		if err := st.Close(); err != nil {
			s.logger.Warn("store close", "err", err)
		}
	}
}

func writePNG(path string, img goimage.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
