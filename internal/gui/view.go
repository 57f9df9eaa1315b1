package gui

import (
	"image"

	"palette-porter/internal/gui/widgets"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
)

// Panel is one titled image in the viewer.
type Panel struct {
	Title string
	Image image.Image
}

type View struct {
	window fyne.Window

	imageDisplay   *widgets.ImageDisplay
	toolbar        *widgets.Toolbar
	parameterPanel *widgets.ParameterPanel
	mainContainer  *fyne.Container

	onClose func()
}

func NewView(window fyne.Window, imageWidth int) *View {
	view := &View{
		window:         window,
		imageDisplay:   widgets.NewImageDisplay(imageWidth),
		toolbar:        widgets.NewToolbar(),
		parameterPanel: widgets.NewParameterPanel(),
	}

	view.mainContainer = container.NewVBox(
		view.imageDisplay.GetContainer(),
		view.toolbar.GetContainer(),
		view.parameterPanel.GetContainer(),
	)

	view.toolbar.SetCloseHandler(view.close)
	window.Canvas().SetOnTypedKey(view.onTypedKey)

	return view
}

func (v *View) SetPanels(panels []Panel) {
	for _, p := range panels {
		if p.Image == nil {
			continue
		}
		v.imageDisplay.AddImage(p.Title, p.Image)
	}
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) SetParameters(params map[string]interface{}) {
	v.parameterPanel.UpdateParameters(params)
}

// SetCloseHandler runs before the window closes, however it is closed.
func (v *View) SetCloseHandler(handler func()) {
	v.onClose = handler
	v.window.SetOnClosed(func() {
		if v.onClose != nil {
			v.onClose()
		}
	})
}

func (v *View) onTypedKey(event *fyne.KeyEvent) {
	switch event.Name {
	case fyne.KeyEscape, fyne.KeyQ:
		v.close()
	}
}

func (v *View) close() {
	v.window.Close()
}

func (v *View) GetMainContainer() *fyne.Container {
	return v.mainContainer
}

func (v *View) GetWindow() fyne.Window {
	return v.window
}

func (v *View) Show() {
	v.window.SetContent(v.mainContainer)
	v.window.Show()
}
