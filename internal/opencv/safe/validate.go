package safe

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidInput marks images that are missing, empty or of the wrong shape
// for an operation.
var ErrInvalidInput = errors.New("invalid input")

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("%w: Mat is nil for operation: %s", ErrInvalidInput, operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("%w: Mat %q is invalid for operation: %s", ErrInvalidInput, mat.Tag(), operation)
	}

	if mat.Empty() {
		return fmt.Errorf("%w: Mat is empty for operation: %s", ErrInvalidInput, operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("%w: Mat has invalid dimensions %dx%d for operation: %s", ErrInvalidInput,
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateColorImage requires an 8-bit, three channel BGR image.
func ValidateColorImage(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	if mat.Channels() != 3 {
		return fmt.Errorf("%w: %s requires 3 channels, got %d", ErrInvalidInput, operation, mat.Channels())
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: %s requires 8-bit BGR, got Mat type %v", ErrInvalidInput, operation, mat.Type())
	}

	return nil
}

func ValidateSameSize(a, b *Mat, operation string) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("%w: %s requires equal sizes, got %dx%d and %dx%d", ErrInvalidInput,
			operation, a.Cols(), a.Rows(), b.Cols(), b.Rows())
	}
	return nil
}

func ValidateColorConversion(src *Mat, code gocv.ColorConversionCode) error {
	if err := ValidateMatForOperation(src, "CvtColor"); err != nil {
		return err
	}

	channels := src.Channels()

	switch code {
	case gocv.ColorBGRToGray, gocv.ColorRGBToGray, gocv.ColorBGRToHSV,
		gocv.ColorBGRToLab, gocv.ColorLabToBGR:
		if channels != 3 {
			return fmt.Errorf("%w: conversion %v requires 3 channels, got %d", ErrInvalidInput, code, channels)
		}
	case gocv.ColorGrayToBGR:
		if channels != 1 {
			return fmt.Errorf("%w: Gray to BGR conversion requires 1 channel, got %d", ErrInvalidInput, channels)
		}
	case gocv.ColorBGRAToBGR:
		if channels != 4 {
			return fmt.Errorf("%w: BGRA to BGR conversion requires 4 channels, got %d", ErrInvalidInput, channels)
		}
	}

	switch code {
	case gocv.ColorBGRToLab, gocv.ColorLabToBGR:
		if src.Type() != gocv.MatTypeCV32FC3 {
			return fmt.Errorf("%w: float L*a*b* conversion requires CV_32FC3, got %v", ErrInvalidInput, src.Type())
		}
	}

	return nil
}
