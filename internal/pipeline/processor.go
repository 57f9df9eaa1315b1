package pipeline

import (
	"context"
	"fmt"

	"palette-porter/internal/algorithms"
	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/bridge"
	"palette-porter/internal/opencv/safe"
)

type imageProcessor struct {
	logger logger.Logger
}

func (p *imageProcessor) ProcessImage(ctx context.Context, primary, reference *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: no primary image", algorithms.ErrInvalidInput)
	}
	if err := safe.ValidateMatForOperation(primary.Mat, "ProcessImage"); err != nil {
		return nil, err
	}

	var referenceMat *safe.Mat
	if reference != nil {
		referenceMat = reference.Mat
	}
	if algorithm.RequiresReference() && referenceMat == nil {
		return nil, fmt.Errorf("%w: %s needs a reference image", algorithms.ErrInvalidInput, algorithm.GetName())
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resultMat, err := algorithm.Process(ctx, primary.Mat, referenceMat, params)
	if err != nil {
		return nil, fmt.Errorf("algorithm processing failed: %w", err)
	}

	if resultMat == nil {
		return nil, fmt.Errorf("algorithm returned nil result")
	}

	select {
	case <-ctx.Done():
		resultMat.Close()
		return nil, ctx.Err()
	default:
	}

	resultImage, err := bridge.MatToImage(resultMat)
	if err != nil {
		resultMat.Close()
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}

	bounds := resultImage.Bounds()
	processedData := &ImageData{
		Image:    resultImage,
		Mat:      resultMat,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: resultMat.Channels(),
		Format:   primary.Format,
		Path:     primary.Path,
	}

	p.logger.Debug("ImageProcessor", "processing completed", map[string]interface{}{
		"algorithm":   algorithm.GetName(),
		"input_size":  fmt.Sprintf("%dx%d", primary.Width, primary.Height),
		"output_size": fmt.Sprintf("%dx%d", processedData.Width, processedData.Height),
	})

	return processedData, nil
}
