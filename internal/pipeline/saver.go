package pipeline

import (
	"bufio"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"palette-porter/internal/logger"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type imageSaver struct {
	logger logger.Logger
}

func (s *imageSaver) SaveToWriter(writer io.Writer, imageData *ImageData, format string) error {
	if imageData == nil || imageData.Image == nil {
		return fmt.Errorf("no image data to save")
	}

	saveFormat := strings.ToLower(format)
	if saveFormat == "" {
		saveFormat = imageData.Format
	}

	img := imageData.Image

	var err error
	switch saveFormat {
	case "jpeg", "jpg":
		saveFormat = "jpeg"
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	case "png":
		err = png.Encode(writer, img)
	case "bmp":
		err = bmp.Encode(writer, img)
	case "tiff", "tif":
		saveFormat = "tiff"
		err = tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		s.logger.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
			"requested_format": strings.ToUpper(saveFormat),
		})
		saveFormat = "png"
		err = png.Encode(writer, img)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": saveFormat,
		})
		return fmt.Errorf("failed to encode %s: %w", saveFormat, err)
	}

	s.logger.Debug("ImageSaver", "image encoded", map[string]interface{}{
		"format": saveFormat,
	})

	return nil
}

func (s *imageSaver) SaveToPath(path string, imageData *ImageData) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	writer := bufio.NewWriter(file)
	format := formatFromExtension(filepath.Ext(path))
	if format == "" {
		format = filepath.Ext(path)
	}

	if err := s.SaveToWriter(writer, imageData, strings.TrimPrefix(format, ".")); err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
