package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/bridge"
	"palette-porter/internal/opencv/conversion"
	"palette-porter/internal/opencv/memory"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gocv.io/x/gocv"
)

type imageLoader struct {
	memoryManager *memory.Manager
	logger        logger.Logger
}

func (l *imageLoader) LoadFromPath(ctx context.Context, path string) (*ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	imageData, err := l.LoadFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	imageData.Path = path

	return imageData, nil
}

// LoadFromBytes decodes with OpenCV, which applies EXIF orientation, and
// derives the displayed image and dimensions from the resulting Mat. The Go
// decoders are used only for data OpenCV cannot read.
func (l *imageLoader) LoadFromBytes(data []byte, ext string) (*ImageData, error) {
	_, decodedFormat, _ := image.DecodeConfig(bytes.NewReader(data))
	format := l.determineActualFormat(ext, decodedFormat)

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		l.logger.Debug("ImageLoader", "OpenCV decode failed, using Go decoder", map[string]interface{}{
			"format": format,
		})
		return l.decodeWithGo(data, format)
	}

	safeMat, err := l.memoryManager.Adopt(mat, "loaded_image")
	if err != nil {
		return nil, fmt.Errorf("failed to track decoded Mat: %w", err)
	}

	img, err := bridge.MatToImage(safeMat)
	if err != nil {
		safeMat.Close()
		return nil, fmt.Errorf("failed to convert decoded Mat to image: %w", err)
	}

	imageData := &ImageData{
		Image:    img,
		Mat:      safeMat,
		Width:    safeMat.Cols(),
		Height:   safeMat.Rows(),
		Channels: safeMat.Channels(),
		Format:   format,
	}

	l.logger.Debug("ImageLoader", "image decoded", map[string]interface{}{
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   imageData.Format,
	})

	return imageData, nil
}

func (l *imageLoader) decodeWithGo(data []byte, format string) (*ImageData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoded image has no pixels")
	}

	return l.fromImage(img, format)
}

func (l *imageLoader) fromImage(img image.Image, format string) (*ImageData, error) {
	safeMat, err := bridge.ImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}

	if safeMat.Channels() != 3 {
		gray := safeMat
		defer gray.Close()

		safeMat, err = conversion.ConvertToBGR(gray)
		if err != nil {
			return nil, fmt.Errorf("failed to expand gray image: %w", err)
		}
	}

	return &ImageData{
		Image:    img,
		Mat:      safeMat,
		Width:    safeMat.Cols(),
		Height:   safeMat.Rows(),
		Channels: safeMat.Channels(),
		Format:   format,
	}, nil
}

func (l *imageLoader) determineActualFormat(ext, decodedFormat string) string {
	if format := formatFromExtension(ext); format != "" {
		return format
	}
	if decodedFormat != "" {
		return decodedFormat
	}
	return "unknown"
}

func formatFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	}
	return ""
}
