package camera

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice records the order of hardware calls so tests can verify
// the stop-after-capture ordering guarantee.
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	failRead bool
	stillErr error
}

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func (d *fakeDevice) Read() (image.Image, error) {
	if d.failRead {
		return nil, errors.New("read failed")
	}
	return d.frame(), nil
}

func (d *fakeDevice) Still() (image.Image, error) {
	d.record("still")
	if d.stillErr != nil {
		return nil, d.stillErr
	}
	return d.frame(), nil
}

func (d *fakeDevice) ExposureRange() ExposureRange {
	return ExposureRange{Min: -2, Max: 2}
}

func (d *fakeDevice) SetExposure(v float64) error {
	d.record("exposure")
	return nil
}

func (d *fakeDevice) Close() error {
	d.record("close")
	return nil
}

func twoLenses() []Lens {
	return []Lens{
		{Index: 0, Direction: DirectionFront},
		{Index: 1, Direction: DirectionBack},
	}
}

func newTestSession(dev *fakeDevice) *Session {
	return NewSession(twoLenses(), func(int) (Device, error) { return dev, nil }, nil)
}

func TestStartWithNoLenses(t *testing.T) {
	s := NewSession(nil, func(int) (Device, error) { return &fakeDevice{}, nil }, nil)
	err := s.Start(0)
	assert.ErrorIs(t, err, ErrHardwareUnavailable)
	assert.Equal(t, Failed, s.Status())
}

func TestStartWithInvalidLensIndex(t *testing.T) {
	s := newTestSession(&fakeDevice{})
	err := s.Start(5)
	assert.ErrorIs(t, err, ErrLensIndexInvalid)

	// A bad argument is not an init failure; the session stays usable.
	assert.Equal(t, Uninitialized, s.Status())
	require.NoError(t, s.Start(0))
	defer s.Stop()
	assert.Equal(t, Streaming, s.Status())
}

func TestStartMisuseKeepsStreamingSessionHealthy(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))
	defer s.Stop()

	assert.Error(t, s.Start(5))
	assert.Equal(t, Streaming, s.Status())

	select {
	case frame := <-s.Frames():
		assert.NotNil(t, frame)
	case <-time.After(time.Second):
		t.Fatal("feed died after rejected start")
	}
}

func TestStartFiresCallbacks(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)

	var feedReady bool
	var direction Direction
	s.OnFeedReady(func() { feedReady = true })
	s.OnLensDirectionChanged(func(d Direction) { direction = d })

	require.NoError(t, s.Start(0))
	defer s.Stop()

	assert.True(t, feedReady)
	assert.Equal(t, DirectionFront, direction)
	assert.Equal(t, Streaming, s.Status())
}

func TestStartOpenFailureLeavesFailedState(t *testing.T) {
	openErr := errors.New("device busy")
	s := NewSession(twoLenses(), func(int) (Device, error) { return nil, openErr }, nil)

	err := s.Start(0)
	assert.ErrorIs(t, err, openErr)
	assert.Equal(t, Failed, s.Status())
}

func TestFramesArrive(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))
	defer s.Stop()

	select {
	case frame := <-s.Frames():
		assert.NotNil(t, frame)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}

func TestSwitchLensSwapsPairedSlot(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)

	var directions []Direction
	s.OnLensDirectionChanged(func(d Direction) { directions = append(directions, d) })

	require.NoError(t, s.Start(0))
	defer s.Stop()

	require.NoError(t, s.SwitchLens())
	lens, ok := s.ActiveLens()
	require.True(t, ok)
	assert.Equal(t, DirectionBack, lens.Direction)

	require.NoError(t, s.SwitchLens())
	lens, ok = s.ActiveLens()
	require.True(t, ok)
	assert.Equal(t, DirectionFront, lens.Direction)

	assert.Equal(t, []Direction{DirectionFront, DirectionBack, DirectionFront}, directions)
}

func TestSwitchLensRequiresStreaming(t *testing.T) {
	s := newTestSession(&fakeDevice{})
	assert.ErrorIs(t, s.SwitchLens(), ErrNotStreaming)
}

func TestCapturePersistsBeforeStopReleasesHandle(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))

	captureStarted := make(chan struct{})
	saveDone := make(chan struct{})

	go func() {
		_ = s.Capture(func(image.Image) error {
			close(captureStarted)
			// Simulate a slow photo write while Stop is pending.
			time.Sleep(50 * time.Millisecond)
			dev.record("save")
			close(saveDone)
			return nil
		})
	}()

	<-captureStarted
	s.Stop()
	<-saveDone

	calls := dev.callLog()
	saveAt, closeAt := -1, -1
	for i, c := range calls {
		switch c {
		case "save":
			saveAt = i
		case "close":
			closeAt = i
		}
	}
	require.NotEqual(t, -1, saveAt, "capture save never ran: %v", calls)
	require.NotEqual(t, -1, closeAt, "device never closed: %v", calls)
	assert.Less(t, saveAt, closeAt, "handle released before capture persisted: %v", calls)
	assert.Equal(t, Disposed, s.Status())
}

// overlapDevice counts hardware calls that run at the same moment on
// the one shared handle.
type overlapDevice struct {
	busy     atomic.Int32
	overlaps atomic.Int32
}

func (d *overlapDevice) enter() func() {
	if d.busy.Add(1) > 1 {
		d.overlaps.Add(1)
	}
	return func() { d.busy.Add(-1) }
}

func (d *overlapDevice) Read() (image.Image, error) {
	defer d.enter()()
	time.Sleep(time.Millisecond)
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *overlapDevice) Still() (image.Image, error) {
	defer d.enter()()
	time.Sleep(time.Millisecond)
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *overlapDevice) ExposureRange() ExposureRange { return ExposureRange{Min: -2, Max: 2} }

func (d *overlapDevice) SetExposure(float64) error {
	defer d.enter()()
	return nil
}

func (d *overlapDevice) Close() error { return nil }

func TestStillNeverOverlapsPreviewRead(t *testing.T) {
	dev := &overlapDevice{}
	s := NewSession(twoLenses(), func(int) (Device, error) { return dev, nil }, nil)
	require.NoError(t, s.Start(0))
	defer s.Stop()

	// Drain the mailbox so the pump keeps reading throughout.
	drained := make(chan struct{})
	go func() {
		for {
			select {
			case <-drained:
				return
			case <-s.Frames():
			}
		}
	}()
	defer close(drained)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Capture(nil))
		require.NoError(t, s.SetExposure(float64(i%4)))
	}

	assert.Zero(t, dev.overlaps.Load(),
		"still or exposure call ran while a preview read was in flight")
}

func TestCaptureFailureIsNotPersisted(t *testing.T) {
	dev := &fakeDevice{stillErr: errors.New("sensor timeout")}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))
	defer s.Stop()

	saved := false
	err := s.Capture(func(image.Image) error {
		saved = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.False(t, saved)
}

func TestCaptureRequiresStreaming(t *testing.T) {
	s := newTestSession(&fakeDevice{})
	err := s.Capture(nil)
	assert.ErrorIs(t, err, ErrNotStreaming)
}

func TestStopIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))

	s.Stop()
	s.Stop()
	s.Stop()

	closes := 0
	for _, c := range dev.callLog() {
		if c == "close" {
			closes++
		}
	}
	assert.Equal(t, 1, closes)
	assert.Equal(t, Disposed, s.Status())
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	s := newTestSession(&fakeDevice{})
	s.Stop()
	assert.Equal(t, Uninitialized, s.Status())
}

func TestSetExposureClampsToDeviceRange(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestSession(dev)
	require.NoError(t, s.Start(0))
	defer s.Stop()

	require.NoError(t, s.SetExposure(10))
	assert.InDelta(t, 2.0, s.Exposure(), 1e-9)

	require.NoError(t, s.SetExposure(-100))
	assert.InDelta(t, -2.0, s.Exposure(), 1e-9)

	require.NoError(t, s.SetExposure(0.5))
	assert.InDelta(t, 0.5, s.Exposure(), 1e-9)
}

func TestStartAfterDisposeIsRejected(t *testing.T) {
	s := newTestSession(&fakeDevice{})
	require.NoError(t, s.Start(0))
	s.Stop()

	err := s.Start(0)
	assert.Error(t, err)
	assert.Equal(t, Disposed, s.Status())
}
