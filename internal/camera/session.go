package camera

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"
)

// Status is the camera session lifecycle state.
type Status int

const (
	Uninitialized Status = iota
	Initializing
	Streaming
	SwitchingLens
	Disposing
	Disposed
	Failed
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case Streaming:
		return "Streaming"
	case SwitchingLens:
		return "SwitchingLens"
	case Disposing:
		return "Disposing"
	case Disposed:
		return "Disposed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Session owns the live-feed lifecycle for one preview. It holds the
// hardware handle exclusively: the handle is always released before a
// new one is acquired, and disposal stops the stream before release.
//
// All hardware operations (Start, Stop, SwitchLens, Capture) serialize
// on one mutex, so a lens switch can never overlap an in-flight capture
// and Stop always observes capture completion, including the capture's
// persistence side effect, before the handle goes away.
type Session struct {
	mu       sync.Mutex
	status   Status
	lenses   []Lens
	front    int // index into lenses, -1 when absent
	back     int
	active   int // index into lenses of the open lens
	open     OpenFunc
	dev      Device
	exposure float64

	// io serializes raw device calls between the pump goroutine and the
	// op paths. Capture devices are not safe for concurrent use: a Still
	// must never overlap a preview Read on the same handle.
	io sync.Mutex

	frames   chan image.Image
	stopPump chan struct{}
	pumpDone chan struct{}
	inflight sync.WaitGroup

	onFeedReady   func()
	onLensChanged func(Direction)

	logger *slog.Logger
}

// NewSession builds a session over the enumerated lenses. The front and
// back slots are resolved once here rather than re-scanning hardware on
// every switch.
func NewSession(lenses []Lens, open OpenFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		status: Uninitialized,
		lenses: lenses,
		front:  -1,
		back:   -1,
		active: -1,
		open:   open,
		frames: make(chan image.Image, 1),
		logger: logger,
	}
	for i, l := range lenses {
		switch l.Direction {
		case DirectionFront:
			if s.front == -1 {
				s.front = i
			}
		case DirectionBack:
			if s.back == -1 {
				s.back = i
			}
		}
	}
	return s
}

// OnFeedReady registers the callback fired once streaming begins.
func (s *Session) OnFeedReady(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFeedReady = fn
}

// OnLensDirectionChanged registers the callback fired on successful
// start and on every lens switch.
func (s *Session) OnLensDirectionChanged(fn func(Direction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLensChanged = fn
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ActiveLens returns the lens currently streaming, if any.
func (s *Session) ActiveLens() (Lens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 || s.active >= len(s.lenses) {
		return Lens{}, false
	}
	return s.lenses[s.active], true
}

// Frames returns the preview frame mailbox. The pump keeps only the
// newest frame, so render cadence is decoupled from acquisition.
func (s *Session) Frames() <-chan image.Image {
	return s.frames
}

// Start acquires the hardware handle for the lens at the given slot and
// begins streaming. Initialization failures leave the session in the
// Failed state for the caller to observe; there is no automatic retry.
func (s *Session) Start(lens int) error {
	s.mu.Lock()

	if s.status == Streaming || s.status == SwitchingLens {
		s.mu.Unlock()
		return fmt.Errorf("start: session already streaming")
	}
	if s.status == Disposed || s.status == Disposing {
		s.mu.Unlock()
		return fmt.Errorf("start: session disposed")
	}
	if len(s.lenses) == 0 {
		s.status = Failed
		s.mu.Unlock()
		return ErrHardwareUnavailable
	}
	// Invalid-argument misuse; the session itself stays usable.
	if lens < 0 || lens >= len(s.lenses) {
		s.mu.Unlock()
		return fmt.Errorf("start lens %d: %w", lens, ErrLensIndexInvalid)
	}

	s.status = Initializing
	dev, err := s.open(s.lenses[lens].Index)
	if err != nil {
		s.status = Failed
		s.mu.Unlock()
		return fmt.Errorf("open lens %d: %w", lens, err)
	}

	s.dev = dev
	s.active = lens
	s.exposure = 0
	s.startPumpLocked()
	s.status = Streaming

	feedReady := s.onFeedReady
	lensChanged := s.onLensChanged
	direction := s.lenses[lens].Direction
	s.mu.Unlock()

	s.logger.Info("camera streaming", "lens", lens, "direction", direction.String())
	if feedReady != nil {
		feedReady()
	}
	if lensChanged != nil {
		lensChanged(direction)
	}
	return nil
}

// SwitchLens swaps to the paired lens (front to back or back to front)
// and restarts the stream. Only valid while streaming; serialized with
// capture through the session lock.
func (s *Session) SwitchLens() error {
	s.mu.Lock()

	if s.status != Streaming {
		s.mu.Unlock()
		return fmt.Errorf("switch lens: %w", ErrNotStreaming)
	}

	paired := s.pairedLensLocked()
	if paired == -1 {
		s.mu.Unlock()
		return fmt.Errorf("switch lens: no paired lens: %w", ErrLensIndexInvalid)
	}

	s.status = SwitchingLens
	s.stopPumpLocked()
	s.dev.Close()
	s.dev = nil

	dev, err := s.open(s.lenses[paired].Index)
	if err != nil {
		s.status = Failed
		s.mu.Unlock()
		return fmt.Errorf("open paired lens %d: %w", paired, err)
	}

	s.dev = dev
	s.active = paired
	s.exposure = 0
	s.startPumpLocked()
	s.status = Streaming

	lensChanged := s.onLensChanged
	direction := s.lenses[paired].Direction
	s.mu.Unlock()

	s.logger.Info("lens switched", "lens", paired, "direction", direction.String())
	if lensChanged != nil {
		lensChanged(direction)
	}
	return nil
}

// Capture requests a single still frame and runs save on it before
// returning. The save callback is part of the in-flight capture: a
// concurrent Stop waits for it, so the hardware handle outlives any
// photo write that may still be using it. A failed capture persists
// nothing and returns ErrCaptureFailed.
func (s *Session) Capture(save func(image.Image) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Streaming {
		return fmt.Errorf("capture: %w", ErrNotStreaming)
	}

	s.inflight.Add(1)
	defer s.inflight.Done()

	s.io.Lock()
	img, err := s.dev.Still()
	s.io.Unlock()
	if err != nil || img == nil {
		return fmt.Errorf("still frame: %w", ErrCaptureFailed)
	}
	if save != nil {
		if err := save(img); err != nil {
			return fmt.Errorf("persist capture: %w", err)
		}
	}
	return nil
}

// SetExposure clamps the value to the hardware-reported range and
// applies it. The current value is kept only for display.
func (s *Session) SetExposure(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Streaming {
		return fmt.Errorf("set exposure: %w", ErrNotStreaming)
	}
	s.io.Lock()
	clamped := s.dev.ExposureRange().Clamp(v)
	err := s.dev.SetExposure(clamped)
	s.io.Unlock()
	if err != nil {
		return fmt.Errorf("set exposure: %w", err)
	}
	s.exposure = clamped
	return nil
}

// Exposure returns the last applied exposure value.
func (s *Session) Exposure() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure
}

// Stop stops the frame stream and releases the hardware handle. It is
// idempotent: stopping an already-stopped session is a no-op. Any
// in-flight capture finishes, including its persistence side effect,
// before the handle is released.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.status == Disposed || s.status == Uninitialized {
		s.mu.Unlock()
		return
	}
	s.status = Disposing
	s.mu.Unlock()

	// Captures hold the session lock for their full duration, so by the
	// time Disposing is set none can be mid-flight. The wait also covers
	// any capture that slipped in between the unlock above and here.
	s.inflight.Wait()

	s.mu.Lock()
	s.stopPumpLocked()
	if s.dev != nil {
		s.dev.Close()
		s.dev = nil
	}
	s.active = -1
	s.status = Disposed
	s.mu.Unlock()

	s.logger.Info("camera session disposed")
}

// pairedLensLocked returns the other slot of the front/back pair.
func (s *Session) pairedLensLocked() int {
	if s.active == s.front {
		return s.back
	}
	return s.front
}

// startPumpLocked launches the frame pump goroutine for the open device.
func (s *Session) startPumpLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopPump = stop
	s.pumpDone = done
	dev := s.dev

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}

			s.io.Lock()
			img, err := dev.Read()
			s.io.Unlock()
			if err != nil || img == nil {
				// Transient read failures just skip the frame.
				time.Sleep(10 * time.Millisecond)
				continue
			}

			select {
			case <-stop:
				// Session stopped while reading; drop the frame.
				return
			case s.frames <- img:
			default:
				// Mailbox full: displace the stale frame.
				select {
				case <-s.frames:
				default:
				}
				select {
				case s.frames <- img:
				default:
				}
			}
		}
	}()
}

// stopPumpLocked signals the pump and waits for it to exit.
func (s *Session) stopPumpLocked() {
	if s.stopPump == nil {
		return
	}
	close(s.stopPump)
	<-s.pumpDone
	s.stopPump = nil
	s.pumpDone = nil
}
