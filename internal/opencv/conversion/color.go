package conversion

import (
	"fmt"

	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func CvtColorSafe(src *safe.Mat, dst *safe.Mat, code gocv.ColorConversionCode) error {
	if err := safe.ValidateColorConversion(src, code); err != nil {
		return fmt.Errorf("color conversion validation failed: %w", err)
	}

	if err := safe.ValidateMatForOperation(dst, "CvtColor destination"); err != nil {
		return fmt.Errorf("destination mat validation failed: %w", err)
	}

	gocv.CvtColor(src.GetMat(), dst.GetMatPtr(), code)

	return nil
}

// ToLab converts an 8-bit BGR image to float32 L*a*b* with L in [0,100] and
// a, b in [-127,127].
func ToLab(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateColorImage(src, "ToLab"); err != nil {
		return nil, err
	}

	unit, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV32FC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create float BGR Mat: %w", err)
	}
	defer unit.Close()

	srcMat := src.GetMat()
	srcMat.ConvertToWithParams(unit.GetMatPtr(), gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	lab, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV32FC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create L*a*b* Mat: %w", err)
	}

	if err := CvtColorSafe(unit, lab, gocv.ColorBGRToLab); err != nil {
		lab.Close()
		return nil, fmt.Errorf("BGR to L*a*b* conversion failed: %w", err)
	}

	return lab, nil
}

// FromLab converts float32 L*a*b* back to 8-bit BGR, rounding to the nearest
// value and saturating out-of-gamut colours.
func FromLab(lab *safe.Mat) (*safe.Mat, error) {
	unit, err := safe.NewMat(lab.Rows(), lab.Cols(), gocv.MatTypeCV32FC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create float BGR Mat: %w", err)
	}
	defer unit.Close()

	if err := CvtColorSafe(lab, unit, gocv.ColorLabToBGR); err != nil {
		return nil, fmt.Errorf("L*a*b* to BGR conversion failed: %w", err)
	}

	dst, err := safe.NewMat(lab.Rows(), lab.Cols(), gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	unitMat := unit.GetMat()
	unitMat.ConvertToWithParams(dst.GetMatPtr(), gocv.MatTypeCV8UC3, 255, 0)

	return dst, nil
}

func ConvertToHSV(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateColorImage(src, "ConvertToHSV"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, gocv.ColorBGRToHSV); err != nil {
		dst.Close()
		return nil, fmt.Errorf("BGR to HSV conversion failed: %w", err)
	}

	return dst, nil
}

func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToGrayscale"); err != nil {
		return nil, err
	}

	channels := src.Channels()

	if channels == 1 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	var conversionCode gocv.ColorConversionCode
	switch channels {
	case 3:
		conversionCode = gocv.ColorBGRToGray
	case 4:
		conversionCode = gocv.ColorBGRAToGray
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", channels)
	}

	if err := CvtColorSafe(src, dst, conversionCode); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}

func ConvertToBGR(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToBGR"); err != nil {
		return nil, err
	}

	channels := src.Channels()

	if channels == 3 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	var conversionCode gocv.ColorConversionCode
	switch channels {
	case 1:
		conversionCode = gocv.ColorGrayToBGR
	case 4:
		conversionCode = gocv.ColorBGRAToBGR
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count for BGR conversion: %d", channels)
	}

	if err := CvtColorSafe(src, dst, conversionCode); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}
