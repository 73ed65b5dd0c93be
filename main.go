// Package main provides the entry point for the LapseCam application.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2/dialog"

	"lapsecam/internal/app"
	"lapsecam/internal/camera"
	"lapsecam/internal/logging"
	"lapsecam/internal/project"
	"lapsecam/internal/store"
	"lapsecam/ui/mainwindow"
	"lapsecam/ui/prefs"
)

const maxLensProbe = 4

func main() {
	appPrefs := prefs.Load()
	level := appPrefs.String(prefs.KeyLogLevel)
	logger := logging.Setup(level, "text")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	dataDir := filepath.Join(configDir, "lapsecam")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(filepath.Join(dataDir, "lapsecam.db"))
	if err != nil {
		logger.Error("open settings store", "err", err)
		os.Exit(1)
	}

	state := app.NewState(st, logger)
	win := mainwindow.New(state, appPrefs)

	projectPath := resolveProjectPath(appPrefs, dataDir, logger)
	if err := state.LoadProject(projectPath); err != nil {
		logger.Error("load project", "path", projectPath, "err", err)
		os.Exit(1)
	}
	appPrefs.SetString(prefs.KeyLastProject, projectPath)
	win.SetGridModeStatus(state.Overlay.Mode())

	startCamera(state, win, logger)
	setupHotReload(win, logger)

	win.ShowAndRun()
}

// resolveProjectPath picks the project from the command line, the last
// used project, or a default created on first run.
func resolveProjectPath(p *prefs.Prefs, dataDir string, logger *slog.Logger) string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if last := p.String(prefs.KeyLastProject); last != "" {
		if _, err := os.Stat(last); err == nil {
			return last
		}
	}

	path := filepath.Join(dataDir, "default.lapseproj")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := project.New(1, "default").Save(path); err != nil {
			logger.Error("create default project", "err", err)
		}
	}
	return path
}

// startCamera opens the first available lens. A machine without a
// camera still gets the overlay over a blank feed.
func startCamera(state *app.State, win *mainwindow.MainWindow, logger *slog.Logger) {
	lenses := camera.EnumerateLenses(maxLensProbe)
	session := camera.NewSession(lenses, camera.OpenVideoDevice, logger)
	if err := session.Start(0); err != nil {
		logger.Warn("camera unavailable", "err", err)
		return
	}
	win.AttachSession(session)
}

// setupHotReload prompts for a restart when a newer binary appears.
func setupHotReload(win *mainwindow.MainWindow, logger *slog.Logger) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		logger.Debug("hot reload: unable to determine executable path")
		return
	}

	reloader.OnNewBinary(func() {
		dialog.ShowConfirm("New version available",
			"The application binary has been updated. Restart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				win.SavePreferences()
				if err := reloader.Restart(); err != nil {
					logger.Error("hot reload restart", "err", err)
				}
			}, win.Window())
	})

	reloader.Start()
}
