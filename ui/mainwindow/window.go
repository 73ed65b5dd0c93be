// Package mainwindow assembles the application window and toolbar.
package mainwindow

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	appstate "lapsecam/internal/app"
	"lapsecam/internal/camera"
	"lapsecam/internal/guide"
	"lapsecam/ui/capture"
	"lapsecam/ui/prefs"
)

// MainWindow wires the viewfinder, toolbar, and status bar to the
// application state.
type MainWindow struct {
	fyneApp fyne.App
	window  fyne.Window

	state *appstate.State
	prefs *prefs.Prefs

	viewfinder *capture.Viewfinder
	status     *widget.Label

	editBtn   *widget.Button
	saveBtn   *widget.Button
	cancelBtn *widget.Button
	flashBtn  *widget.Button
	exposure  *widget.Slider
}

// New builds the main window over the given state and preferences.
func New(state *appstate.State, p *prefs.Prefs) *MainWindow {
	w := &MainWindow{
		fyneApp: app.NewWithID("lapsecam"),
		state:   state,
		prefs:   p,
	}
	w.window = w.fyneApp.NewWindow("LapseCam")

	width := p.Float(prefs.KeyWindowWidth, 420)
	height := p.Float(prefs.KeyWindowHeight, 640)
	w.window.Resize(fyne.NewSize(float32(width), float32(height)))

	w.viewfinder = capture.NewViewfinder(nil)
	w.status = widget.NewLabel("")

	w.window.SetContent(container.NewBorder(
		w.buildToolbar(), w.buildFooter(), nil, nil,
		w.viewfinder,
	))

	w.subscribe()
	w.window.SetOnClosed(func() {
		w.SavePreferences()
		w.viewfinder.Stop()
		state.Close()
	})
	return w
}

// Window returns the underlying Fyne window.
func (w *MainWindow) Window() fyne.Window {
	return w.window
}

// ShowAndRun displays the window and enters the event loop.
func (w *MainWindow) ShowAndRun() {
	w.viewfinder.Start()
	w.window.ShowAndRun()
}

func (w *MainWindow) buildToolbar() fyne.CanvasObject {
	captureBtn := widget.NewButtonWithIcon("", theme.MediaPhotoIcon(), w.capturePhoto)
	captureBtn.Importance = widget.HighImportance

	gridBtn := widget.NewButtonWithIcon("", theme.GridIcon(), func() {
		mode, err := w.state.CycleGridMode()
		if err != nil {
			w.setStatus(fmt.Sprintf("overlay: %s (not saved: %v)", mode, err))
			return
		}
		w.setStatus(fmt.Sprintf("overlay: %s", mode))
	})

	switchBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		session := w.state.Session
		if session == nil {
			return
		}
		if err := session.SwitchLens(); err != nil {
			w.setStatus(fmt.Sprintf("lens switch: %v", err))
		}
	})

	w.flashBtn = widget.NewButtonWithIcon("", theme.VisibilityOffIcon(), func() {
		on, err := w.state.ToggleFlash()
		if err != nil {
			w.setStatus(fmt.Sprintf("flash: %v", err))
			return
		}
		w.updateFlashIcon(on)
	})
	w.updateFlashIcon(w.state.FlashEnabled())

	w.editBtn = widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), w.beginGuideEdit)
	w.saveBtn = widget.NewButtonWithIcon("", theme.ConfirmIcon(), w.saveGuideEdit)
	w.cancelBtn = widget.NewButtonWithIcon("", theme.CancelIcon(), w.cancelGuideEdit)
	w.saveBtn.Hide()
	w.cancelBtn.Hide()

	return container.NewHBox(
		captureBtn, gridBtn, switchBtn, w.flashBtn,
		widget.NewSeparator(),
		w.editBtn, w.saveBtn, w.cancelBtn,
	)
}

func (w *MainWindow) buildFooter() fyne.CanvasObject {
	w.exposure = widget.NewSlider(-8, 8)
	w.exposure.Step = 0.5
	w.exposure.Value = w.prefs.Float(prefs.KeyExposure, 0)
	w.exposure.OnChanged = func(v float64) {
		session := w.state.Session
		if session == nil {
			return
		}
		if err := session.SetExposure(v); err == nil {
			w.prefs.SetFloat(prefs.KeyExposure, session.Exposure())
		}
	}
	return container.NewVBox(w.exposure, w.status)
}

func (w *MainWindow) subscribe() {
	w.state.On(appstate.EventProjectLoaded, func(data interface{}) {
		w.viewfinder.SetOverlay(w.state.Overlay)
		w.setStatus(fmt.Sprintf("project: %v", data))
	})
	w.state.On(appstate.EventFeedReady, func(interface{}) {
		w.setStatus("camera ready")
	})
	w.state.On(appstate.EventLensChanged, func(data interface{}) {
		if d, ok := data.(camera.Direction); ok {
			w.setStatus(fmt.Sprintf("lens: %s", d))
		}
	})
	w.state.On(appstate.EventFirstPhoto, func(interface{}) {
		dialog.ShowInformation("First photo",
			"Your first photo is saved. Keep the guide lines on the same landmarks each day for a steady timelapse.",
			w.window)
	})
	w.state.On(appstate.EventGhostReloaded, func(interface{}) {
		w.setStatus("ghost updated")
	})
}

func (w *MainWindow) capturePhoto() {
	go func() {
		if _, err := w.state.CapturePhoto(); err != nil {
			w.setStatus(fmt.Sprintf("capture: %v", err))
			return
		}
		w.setStatus("photo saved")
	}()
}

func (w *MainWindow) beginGuideEdit() {
	ov := w.state.Overlay
	if ov == nil {
		return
	}
	ov.Editor().BeginEdit()
	w.editBtn.Hide()
	w.saveBtn.Show()
	w.cancelBtn.Show()
	w.setStatus("drag a guide line to move it")
}

func (w *MainWindow) saveGuideEdit() {
	if err := w.state.SaveGuideOffsets(); err != nil {
		w.setStatus(fmt.Sprintf("save guides: %v", err))
		return
	}
	w.endGuideEdit("guides saved")
}

func (w *MainWindow) cancelGuideEdit() {
	ov := w.state.Overlay
	if ov != nil {
		ov.Editor().CancelEdit()
	}
	w.endGuideEdit("guides restored")
}

func (w *MainWindow) endGuideEdit(msg string) {
	w.editBtn.Show()
	w.saveBtn.Hide()
	w.cancelBtn.Hide()
	w.setStatus(msg)
}

func (w *MainWindow) updateFlashIcon(on bool) {
	if on {
		w.flashBtn.SetIcon(theme.VisibilityIcon())
	} else {
		w.flashBtn.SetIcon(theme.VisibilityOffIcon())
	}
}

// AttachSession connects an opened camera session to the view.
func (w *MainWindow) AttachSession(session *camera.Session) {
	w.state.AttachSession(session)
	w.viewfinder.SetSession(session)

	if err := session.SetExposure(w.exposure.Value); err == nil {
		w.exposure.Value = session.Exposure()
		w.exposure.Refresh()
	}
}

// SetGridModeStatus reflects the initial overlay mode in the footer.
func (w *MainWindow) SetGridModeStatus(mode guide.GridMode) {
	w.setStatus(fmt.Sprintf("overlay: %s", mode))
}

// SavePreferences persists window geometry and tuning values.
func (w *MainWindow) SavePreferences() {
	size := w.window.Canvas().Size()
	w.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	w.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	_ = w.prefs.Save()
}

func (w *MainWindow) setStatus(msg string) {
	w.status.SetText(msg)
}
