package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
)

const DefaultImageWidth = 300

// ImageDisplay lays out titled images side by side, each scaled to the same
// width.
type ImageDisplay struct {
	container *fyne.Container
	width     int
	images    []*canvas.Image
}

func NewImageDisplay(width int) *ImageDisplay {
	if width <= 0 {
		width = DefaultImageWidth
	}

	return &ImageDisplay{
		container: container.NewHBox(),
		width:     width,
	}
}

func (id *ImageDisplay) AddImage(title string, img image.Image) {
	scaled := Scale(img, id.width)

	picture := canvas.NewImageFromImage(scaled)
	picture.FillMode = canvas.ImageFillOriginal
	picture.ScaleMode = canvas.ImageScaleSmooth

	size := scaled.Bounds().Size()
	picture.SetMinSize(fyne.NewSize(float32(size.X), float32(size.Y)))

	id.images = append(id.images, picture)
	id.container.Add(container.NewBorder(
		widget.NewRichTextFromMarkdown("**"+title+"**"),
		nil, nil, nil,
		picture,
	))
}

func (id *ImageDisplay) GetContainer() *fyne.Container {
	return id.container
}

func (id *ImageDisplay) Count() int {
	return len(id.images)
}

// Scale resizes img to width keeping its aspect ratio. Images already at
// width are returned as is.
func Scale(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width <= 0 || bounds.Dx() == 0 || bounds.Dx() == width {
		return img
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
