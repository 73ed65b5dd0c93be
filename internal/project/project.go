// Package project provides capture project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File represents a capture project file (.lapseproj).
type File struct {
	Version  int       `json:"version"`
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Directories (relative to project file)
	RawDirPath        string `json:"raw_dir,omitempty"`
	StabilizedDirPath string `json:"stabilized_dir,omitempty"`

	// User settings
	Settings ProjectSettings `json:"settings,omitempty"`
}

// ProjectSettings holds user preferences for the project.
type ProjectSettings struct {
	PreferredLens int  `json:"preferred_lens"`
	FlashEnabled  bool `json:"flash_enabled"`
}

// New creates a new project file with default settings.
func New(id int64, name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		ID:       id,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load loads a project from a .lapseproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, err
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// RawDir returns the absolute path to the raw capture directory.
func (p *File) RawDir(projectPath string) string {
	return p.resolveDir(projectPath, p.RawDirPath, "raw")
}

// StabilizedDir returns the absolute path to the stabilized output
// directory watched for ghost updates.
func (p *File) StabilizedDir(projectPath string) string {
	return p.resolveDir(projectPath, p.StabilizedDirPath, "stabilized")
}

// EnsureDirs creates the raw and stabilized directories if missing.
func (p *File) EnsureDirs(projectPath string) error {
	for _, dir := range []string{p.RawDir(projectPath), p.StabilizedDir(projectPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// PhotoPath returns the file path for a capture taken at the given time.
func (p *File) PhotoPath(projectPath string, takenAt time.Time) string {
	name := fmt.Sprintf("%s.png", takenAt.Format("2006-01-02_150405"))
	return filepath.Join(p.RawDir(projectPath), name)
}

func (p *File) resolveDir(projectPath, configured, fallback string) string {
	if configured == "" {
		base := projectPath[:len(projectPath)-len(filepath.Ext(projectPath))]
		return base + "_" + fallback
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(filepath.Dir(projectPath), configured)
}
