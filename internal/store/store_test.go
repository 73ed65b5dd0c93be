package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapsecam/internal/guide"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lapsecam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadOffsetDefaultsWhenUnset(t *testing.T) {
	s := openTestStore(t)

	off, err := s.LoadOffset(1, guide.Portrait)
	require.NoError(t, err)
	assert.Equal(t, guide.DefaultOffset, off)
}

func TestOffsetsRoundTripPerOrientation(t *testing.T) {
	s := openTestStore(t)

	portrait := guide.NewOffset(0.12, 0.38)
	landscape := guide.NewOffset(0.3, 0.55)
	require.NoError(t, s.SaveOffset(1, guide.Portrait, portrait))
	require.NoError(t, s.SaveOffset(1, guide.Landscape, landscape))

	got, err := s.LoadOffset(1, guide.Portrait)
	require.NoError(t, err)
	assert.Equal(t, portrait, got)

	got, err = s.LoadOffset(1, guide.Landscape)
	require.NoError(t, err)
	assert.Equal(t, landscape, got)

	// Re-saving overwrites in place.
	updated := guide.NewOffset(0.2, 0.2)
	require.NoError(t, s.SaveOffset(1, guide.Portrait, updated))
	got, err = s.LoadOffset(1, guide.Portrait)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	// Other projects are unaffected.
	got, err = s.LoadOffset(2, guide.Portrait)
	require.NoError(t, err)
	assert.Equal(t, guide.DefaultOffset, got)
}

func TestGridModeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	mode, err := s.LoadGridMode(1)
	require.NoError(t, err)
	assert.Equal(t, 0, mode)

	require.NoError(t, s.SaveGridMode(1, 3))
	mode, err = s.LoadGridMode(1)
	require.NoError(t, err)
	assert.Equal(t, 3, mode)

	require.NoError(t, s.SaveGridMode(1, 1))
	mode, err = s.LoadGridMode(1)
	require.NoError(t, err)
	assert.Equal(t, 1, mode)
}

func TestFlashFlag(t *testing.T) {
	s := openTestStore(t)

	enabled, err := s.FlashEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetFlashEnabled(true))
	enabled, err = s.FlashEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetFlashEnabled(false))
	enabled, err = s.FlashEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestLatestStabilizedPhoto(t *testing.T) {
	s := openTestStore(t)

	photo, err := s.LatestStabilizedPhoto(1, guide.Portrait)
	require.NoError(t, err)
	assert.Nil(t, photo)

	older := StabilizedPhoto{
		TakenAt:  time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Landmark: guide.NewOffset(0.2, 0.3),
		Path:     "/photos/1/stabilized/old.png",
	}
	newer := StabilizedPhoto{
		TakenAt:  time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		Landmark: guide.NewOffset(0.22, 0.31),
		Path:     "/photos/1/stabilized/new.png",
	}
	require.NoError(t, s.InsertStabilizedPhoto(1, guide.Portrait, older))
	require.NoError(t, s.InsertStabilizedPhoto(1, guide.Portrait, newer))

	photo, err = s.LatestStabilizedPhoto(1, guide.Portrait)
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, newer.Path, photo.Path)
	assert.Equal(t, newer.Landmark, photo.Landmark)

	// Other orientation still has no stabilized set.
	photo, err = s.LatestStabilizedPhoto(1, guide.Landscape)
	require.NoError(t, err)
	assert.Nil(t, photo)
}

func TestCaptureCount(t *testing.T) {
	s := openTestStore(t)

	count, err := s.CaptureCount(1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.InsertCapture(1, time.Now(), "/photos/1/raw/a.png"))
	require.NoError(t, s.InsertCapture(1, time.Now(), "/photos/1/raw/b.png"))

	count, err = s.CaptureCount(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CaptureCount(2)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestClosedStoreReportsUnavailable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.LoadGridMode(1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = s.SaveOffset(1, guide.Portrait, guide.DefaultOffset)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
