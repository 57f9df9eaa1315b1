package bridge

import (
	"fmt"
	"image"
	"image/color"

	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func MatToImage(mat *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToImage"); err != nil {
		return nil, err
	}

	rows := mat.Rows()
	cols := mat.Cols()

	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		return matToGray(mat, rows, cols)
	case gocv.MatTypeCV8UC3:
		return matToRGBA(mat, rows, cols, 3)
	case gocv.MatTypeCV8UC4:
		return matToRGBA(mat, rows, cols, 4)
	default:
		return nil, fmt.Errorf("unsupported Mat type for image conversion: %v", mat.Type())
	}
}

func matToGray(mat *safe.Mat, rows, cols int) (*image.Gray, error) {
	m := mat.GetMat()
	data := m.ToBytes()
	if len(data) != rows*cols {
		return nil, fmt.Errorf("unexpected buffer size %d for %dx%d gray Mat", len(data), cols, rows)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data)
	return img, nil
}

// matToRGBA reorders BGR(A) bytes into RGBA; three channel Mats get an opaque
// alpha.
func matToRGBA(mat *safe.Mat, rows, cols, channels int) (*image.RGBA, error) {
	m := mat.GetMat()
	data := m.ToBytes()
	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("unexpected buffer size %d for %dx%dx%d Mat", len(data), cols, rows, channels)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, j := 0, 0; i < len(data); i, j = i+channels, j+4 {
		img.Pix[j+0] = data[i+2]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+0]
		if channels == 4 {
			img.Pix[j+3] = data[i+3]
		} else {
			img.Pix[j+3] = 0xff
		}
	}

	return img, nil
}

// ImageToMat converts any image to an 8-bit BGR Mat; gray images become a
// single channel Mat.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("input image has invalid dimensions: %dx%d", width, height)
	}

	if gray, ok := img.(*image.Gray); ok {
		return grayToMat(gray, width, height)
	}

	data := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = append(data, c.B, c.G, c.R)
		}
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create BGR Mat: %w", err)
	}
	defer mat.Close()

	return safe.NewMatFromMat(mat)
}

func grayToMat(img *image.Gray, width, height int) (*safe.Mat, error) {
	data := make([]byte, 0, width*height)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		data = append(data, row...)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create gray Mat: %w", err)
	}
	defer mat.Close()

	return safe.NewMatFromMat(mat)
}
