package gui

import (
	"palette-porter/internal/logger"

	"fyne.io/fyne/v2"
)

// Display is everything one viewer window shows.
type Display struct {
	Title      string
	Status     string
	Panels     []Panel
	Parameters map[string]interface{}
}

type Manager struct {
	app        fyne.App
	logger     logger.Logger
	imageWidth int
	view       *View
	isShutdown bool
}

func NewManager(app fyne.App, log logger.Logger, imageWidth int) *Manager {
	return &Manager{
		app:        app,
		logger:     log,
		imageWidth: imageWidth,
	}
}

// Open builds the window for display and shows it. The application quits
// when the window closes.
func (m *Manager) Open(display Display) *View {
	window := m.app.NewWindow(display.Title)
	window.SetPadded(true)

	m.view = NewView(window, m.imageWidth)
	m.view.SetPanels(display.Panels)
	m.view.SetStatus(display.Status)
	m.view.SetParameters(display.Parameters)
	m.view.SetCloseHandler(func() {
		m.logger.Debug("GUIManager", "viewer closed", nil)
		m.app.Quit()
	})

	m.view.Show()
	m.logger.Info("GUIManager", "viewer displayed", map[string]interface{}{
		"title":  display.Title,
		"images": len(display.Panels),
	})

	return m.view
}

// Run opens display and blocks until the viewer is closed.
func (m *Manager) Run(display Display) {
	m.Open(display)
	m.app.Run()
}

// Shutdown closes the viewer from any goroutine.
func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}
	m.isShutdown = true

	fyne.Do(func() {
		if m.view != nil {
			m.view.GetWindow().Close()
		}
		m.app.Quit()
	})
}
