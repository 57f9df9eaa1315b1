package rangemask

import (
	"context"
	"fmt"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/conversion"
	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	OutputMasked   = "masked"
	OutputMask     = "mask"
	OutputInverted = "inverted"
)

var channelParams = [3]string{"h", "s", "v"}

// Processor keeps the pixels whose HSV value lies inside [lower, upper].
type Processor struct {
	name   string
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	return &Processor{
		name:   "Color Range Mask",
		logger: log,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) RequiresReference() bool {
	return false
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"lower_h": 0,
		"lower_s": 0,
		"lower_v": 255,
		"upper_h": 255,
		"upper_s": 255,
		"upper_v": 255,
		"output":  OutputMasked,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	for _, ch := range channelParams {
		lower := p.getIntParam(params, "lower_"+ch)
		upper := p.getIntParam(params, "upper_"+ch)

		if lower < 0 || lower > 255 {
			return fmt.Errorf("lower_%s must be between 0 and 255, got: %d", ch, lower)
		}
		if upper < 0 || upper > 255 {
			return fmt.Errorf("upper_%s must be between 0 and 255, got: %d", ch, upper)
		}
		if lower > upper {
			return fmt.Errorf("lower_%s (%d) exceeds upper_%s (%d)", ch, lower, ch, upper)
		}
	}

	switch output := p.getStringParam(params, "output"); output {
	case OutputMasked, OutputMask, OutputInverted:
	default:
		return fmt.Errorf("output must be 'masked', 'mask' or 'inverted', got: %s", output)
	}

	return nil
}

func (p *Processor) Process(ctx context.Context, primary, _ *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if err := safe.ValidateColorImage(primary, "Color Range Mask processing"); err != nil {
		return nil, err
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hsv, err := conversion.ConvertToHSV(primary)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to HSV: %w", err)
	}
	defer hsv.Close()

	mask, err := safe.NewMat(primary.Rows(), primary.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("failed to create mask Mat: %w", err)
	}
	defer mask.Close()

	lower, upper := p.bounds(params)
	gocv.InRangeWithScalar(hsv.GetMat(), lower, upper, mask.GetMatPtr())

	output := p.getStringParam(params, "output")
	p.logger.Info("ColorRangeMask", "mask applied", map[string]interface{}{
		"selected_pixels": gocv.CountNonZero(mask.GetMat()),
		"total_pixels":    primary.Rows() * primary.Cols(),
		"output":          output,
	})

	switch output {
	case OutputMask:
		return conversion.ConvertToBGR(mask)
	case OutputInverted:
		inverted, err := safe.NewMat(primary.Rows(), primary.Cols(), gocv.MatTypeCV8UC1)
		if err != nil {
			return nil, fmt.Errorf("failed to create inverted mask Mat: %w", err)
		}
		defer inverted.Close()

		gocv.BitwiseNot(mask.GetMat(), inverted.GetMatPtr())
		return conversion.ConvertToBGR(inverted)
	default:
		return p.applyMask(primary, mask)
	}
}

func (p *Processor) applyMask(src, mask *safe.Mat) (*safe.Mat, error) {
	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, fmt.Errorf("failed to create masked Mat: %w", err)
	}

	dstMat := dst.GetMatPtr()
	dstMat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	srcMat := src.GetMat()
	srcMat.CopyToWithMask(dstMat, mask.GetMat())

	return dst, nil
}

func (p *Processor) bounds(params map[string]interface{}) (gocv.Scalar, gocv.Scalar) {
	var lower, upper [3]float64
	for i, ch := range channelParams {
		lower[i] = float64(p.getIntParam(params, "lower_"+ch))
		upper[i] = float64(p.getIntParam(params, "upper_"+ch))
	}
	return gocv.NewScalar(lower[0], lower[1], lower[2], 0),
		gocv.NewScalar(upper[0], upper[1], upper[2], 0)
}

func (p *Processor) getIntParam(params map[string]interface{}, name string) int {
	switch v := params[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return p.GetDefaultParameters()[name].(int)
}

func (p *Processor) getStringParam(params map[string]interface{}, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return p.GetDefaultParameters()[name].(string)
}
