package app

import (
	goimage "image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapsecam/internal/camera"
	"lapsecam/internal/guide"
	"lapsecam/internal/project"
	"lapsecam/internal/store"
)

type stubDevice struct{}

func (stubDevice) Read() (goimage.Image, error)  { return stubFrame(), nil }
func (stubDevice) Still() (goimage.Image, error) { return stubFrame(), nil }
func (stubDevice) ExposureRange() camera.ExposureRange {
	return camera.ExposureRange{Min: -8, Max: 8}
}
func (stubDevice) SetExposure(float64) error { return nil }
func (stubDevice) Close() error              { return nil }

func stubFrame() goimage.Image {
	img := goimage.NewRGBA(goimage.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 40, G: 80, B: 120, A: 255})
		}
	}
	return img
}

func newTestState(t *testing.T) (*State, string) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	projPath := filepath.Join(dir, "daily.lapseproj")
	require.NoError(t, project.New(1, "daily").Save(projPath))

	s := NewState(st, nil)
	t.Cleanup(s.Close)
	return s, projPath
}

func startedSession(t *testing.T) *camera.Session {
	t.Helper()
	lenses := []camera.Lens{
		{Index: 0, Direction: camera.DirectionFront},
		{Index: 1, Direction: camera.DirectionBack},
	}
	session := camera.NewSession(lenses, func(int) (camera.Device, error) {
		return stubDevice{}, nil
	}, nil)
	require.NoError(t, session.Start(0))
	return session
}

func TestLoadProjectPreparesDirectories(t *testing.T) {
	s, projPath := newTestState(t)

	var loaded []interface{}
	s.On(EventProjectLoaded, func(data interface{}) { loaded = append(loaded, data) })

	require.NoError(t, s.LoadProject(projPath))

	assert.Equal(t, []interface{}{projPath}, loaded)
	assert.DirExists(t, s.Project.RawDir(projPath))
	assert.DirExists(t, s.Project.StabilizedDir(projPath))
	require.NotNil(t, s.Overlay)
	assert.Equal(t, guide.ModeNone, s.Overlay.Mode())
}

func TestCapturePhotoEmitsFirstPhotoOnce(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))
	s.AttachSession(startedSession(t))

	var firsts, captures int
	s.On(EventFirstPhoto, func(interface{}) { firsts++ })
	s.On(EventPhotoCaptured, func(interface{}) { captures++ })

	path1, err := s.CapturePhoto()
	require.NoError(t, err)
	assert.FileExists(t, path1)

	_, err = s.CapturePhoto()
	require.NoError(t, err)

	assert.Equal(t, 1, firsts)
	assert.Equal(t, 2, captures)

	count, err := s.Store.CaptureCount(s.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCapturePhotoWithoutSession(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))

	_, err := s.CapturePhoto()
	assert.Error(t, err)
}

func TestToggleFlashPersists(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))
	assert.False(t, s.FlashEnabled())

	var events []interface{}
	s.On(EventFlashChanged, func(data interface{}) { events = append(events, data) })

	on, err := s.ToggleFlash()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []interface{}{true}, events)

	persisted, err := s.Store.FlashEnabled()
	require.NoError(t, err)
	assert.True(t, persisted)
}

func TestCycleGridModeEmitsEvent(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))

	var modes []interface{}
	s.On(EventGridModeChanged, func(data interface{}) { modes = append(modes, data) })

	mode, err := s.CycleGridMode()
	require.NoError(t, err)
	assert.Equal(t, guide.ModeGrid, mode)
	assert.Equal(t, []interface{}{guide.ModeGrid}, modes)
}

func TestSaveGuideOffsetsPersists(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))

	editor := s.Overlay.Editor()
	editor.BeginEdit()
	editor.SetOffset(guide.NewOffset(0.25, 0.55))

	var saved []interface{}
	s.On(EventOffsetsSaved, func(data interface{}) { saved = append(saved, data) })
	require.NoError(t, s.SaveGuideOffsets())
	assert.Len(t, saved, 1)

	off, err := s.Store.LoadOffset(s.Project.ID, guide.Portrait)
	require.NoError(t, err)
	assert.Equal(t, guide.NewOffset(0.25, 0.55), off)
}

func TestSetOrientationReloadsOffsets(t *testing.T) {
	s, projPath := newTestState(t)
	require.NoError(t, s.LoadProject(projPath))

	require.NoError(t, s.Store.SaveOffset(1, guide.Landscape, guide.NewOffset(0.3, 0.6)))
	require.NoError(t, s.SetOrientation(guide.Landscape))
	assert.Equal(t, guide.NewOffset(0.3, 0.6), s.Overlay.Editor().Offset())
}

func TestProjectFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trip.lapseproj")

	proj := project.New(7, "trip")
	require.NoError(t, proj.Save(path))

	loaded, err := project.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.ID)
	assert.Equal(t, "trip", loaded.Name)

	// Default directories derive from the project file name.
	assert.Equal(t, filepath.Join(dir, "trip_raw"), loaded.RawDir(path))
	assert.Equal(t, filepath.Join(dir, "trip_stabilized"), loaded.StabilizedDir(path))

	_, err = os.Stat(loaded.RawDir(path))
	assert.True(t, os.IsNotExist(err))
}
