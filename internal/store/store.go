// Package store wraps SQLite-backed persistence for guide offsets,
// grid-mode selection, app-wide flags, and the photo ledger.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"lapsecam/internal/guide"
)

// ErrStoreUnavailable wraps any read/write failure of the underlying
// database. Callers keep operating on last-known in-memory values.
var ErrStoreUnavailable = errors.New("settings store unavailable")

// Store wraps SQLite-backed persistence.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open database", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guide_offsets (
            project_id INTEGER NOT NULL,
            orientation TEXT NOT NULL,
            offset_x REAL NOT NULL,
            offset_y REAL NOT NULL,
            PRIMARY KEY (project_id, orientation)
        );`,
		`CREATE TABLE IF NOT EXISTS project_settings (
            project_id INTEGER PRIMARY KEY,
            grid_mode INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS app_settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS captures (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            taken_at TIMESTAMP NOT NULL,
            raw_path TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS stabilized_photos (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            orientation TEXT NOT NULL,
            taken_at TIMESTAMP NOT NULL,
            landmark_x REAL NOT NULL,
            landmark_y REAL NOT NULL,
            stabilized_path TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_captures_project ON captures(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_stabilized_project
            ON stabilized_photos(project_id, orientation, taken_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return storeErr("ensure schema", err)
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

// LoadOffset returns the persisted guide offset for a project and
// orientation, or guide.DefaultOffset when none has been saved yet.
func (s *Store) LoadOffset(projectID int64, o guide.Orientation) (guide.Offset, error) {
	var x, y float64
	err := s.db.QueryRow(
		`SELECT offset_x, offset_y FROM guide_offsets WHERE project_id = ? AND orientation = ?`,
		projectID, o.Key(),
	).Scan(&x, &y)
	if errors.Is(err, sql.ErrNoRows) {
		return guide.DefaultOffset, nil
	}
	if err != nil {
		return guide.DefaultOffset, storeErr("load offset", err)
	}
	return guide.NewOffset(x, y), nil
}

// SaveOffset persists the orientation-specific offset pair.
func (s *Store) SaveOffset(projectID int64, o guide.Orientation, off guide.Offset) error {
	_, err := s.db.Exec(
		`INSERT INTO guide_offsets (project_id, orientation, offset_x, offset_y)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (project_id, orientation)
         DO UPDATE SET offset_x = excluded.offset_x, offset_y = excluded.offset_y`,
		projectID, o.Key(), off.X, off.Y,
	)
	if err != nil {
		return storeErr("save offset", err)
	}
	return nil
}

// LoadGridMode returns the persisted grid mode index for a project.
func (s *Store) LoadGridMode(projectID int64) (int, error) {
	var mode int
	err := s.db.QueryRow(
		`SELECT grid_mode FROM project_settings WHERE project_id = ?`, projectID,
	).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("load grid mode", err)
	}
	return mode, nil
}

// SaveGridMode persists the grid mode index for a project.
func (s *Store) SaveGridMode(projectID int64, mode int) error {
	_, err := s.db.Exec(
		`INSERT INTO project_settings (project_id, grid_mode) VALUES (?, ?)
         ON CONFLICT (project_id) DO UPDATE SET grid_mode = excluded.grid_mode`,
		projectID, mode,
	)
	if err != nil {
		return storeErr("save grid mode", err)
	}
	return nil
}

// FlashEnabled returns the global flash flag, defaulting to false.
func (s *Store) FlashEnabled() (bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM app_settings WHERE key = 'flash_enabled'`,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("load flash flag", err)
	}
	return value == "1", nil
}

// SetFlashEnabled persists the global flash flag.
func (s *Store) SetFlashEnabled(enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	_, err := s.db.Exec(
		`INSERT INTO app_settings (key, value) VALUES ('flash_enabled', ?)
         ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		value,
	)
	if err != nil {
		return storeErr("save flash flag", err)
	}
	return nil
}

// StabilizedPhoto describes the most recent stabilized photo for a
// project and orientation, with the landmark offset recorded at
// stabilization time.
type StabilizedPhoto struct {
	TakenAt  time.Time
	Landmark guide.Offset
	Path     string
}

// LatestStabilizedPhoto returns the newest stabilized photo for the
// project and orientation, or nil when the stabilized set is empty.
func (s *Store) LatestStabilizedPhoto(projectID int64, o guide.Orientation) (*StabilizedPhoto, error) {
	var (
		takenAt time.Time
		x, y    float64
		path    string
	)
	err := s.db.QueryRow(
		`SELECT taken_at, landmark_x, landmark_y, stabilized_path
         FROM stabilized_photos
         WHERE project_id = ? AND orientation = ?
         ORDER BY taken_at DESC LIMIT 1`,
		projectID, o.Key(),
	).Scan(&takenAt, &x, &y, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load stabilized photo", err)
	}
	return &StabilizedPhoto{
		TakenAt:  takenAt,
		Landmark: guide.NewOffset(x, y),
		Path:     path,
	}, nil
}

// InsertStabilizedPhoto records the output of the external stabilization
// pipeline for a captured photo.
func (s *Store) InsertStabilizedPhoto(projectID int64, o guide.Orientation, p StabilizedPhoto) error {
	_, err := s.db.Exec(
		`INSERT INTO stabilized_photos (project_id, orientation, taken_at, landmark_x, landmark_y, stabilized_path)
         VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, o.Key(), p.TakenAt, p.Landmark.X, p.Landmark.Y, p.Path,
	)
	if err != nil {
		return storeErr("insert stabilized photo", err)
	}
	return nil
}

// InsertCapture records a raw captured photo.
func (s *Store) InsertCapture(projectID int64, takenAt time.Time, rawPath string) error {
	_, err := s.db.Exec(
		`INSERT INTO captures (project_id, taken_at, raw_path) VALUES (?, ?, ?)`,
		projectID, takenAt, rawPath,
	)
	if err != nil {
		return storeErr("insert capture", err)
	}
	return nil
}

// CaptureCount returns how many photos have been captured in a project.
func (s *Store) CaptureCount(projectID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM captures WHERE project_id = ?`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("count captures", err)
	}
	return count, nil
}
