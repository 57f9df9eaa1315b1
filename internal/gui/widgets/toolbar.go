package widgets

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Toolbar shows the job status and a close button under the images.
type Toolbar struct {
	container   *fyne.Container
	closeButton *widget.Button
	statusLabel *widget.Label
	hintLabel   *widget.Label

	closeHandler func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.closeButton = widget.NewButton("Close", t.onCloseClicked)
	t.closeButton.Importance = widget.HighImportance

	t.statusLabel = widget.NewLabel("Ready")
	t.hintLabel = widget.NewLabel("Esc or q to close")
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	content := container.NewBorder(
		nil, nil,
		t.statusLabel,
		container.NewHBox(t.hintLabel, t.closeButton),
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) onCloseClicked() {
	if t.closeHandler != nil {
		t.closeHandler()
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetCloseHandler(handler func()) {
	t.closeHandler = handler
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) Status() string {
	return t.statusLabel.Text
}
