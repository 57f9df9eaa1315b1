package regiondiff

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Region is a watched rectangle with its own binary threshold.
type Region struct {
	Rect      image.Rectangle
	Threshold float64
}

// Detection is a changed blob inside a region, in frame coordinates.
type Detection struct {
	Region int
	Box    image.Rectangle
	Area   float64
}

var (
	regionColor    = color.RGBA{G: 255}
	detectionColor = color.RGBA{R: 255}
)

// Processor marks where a frame differs from a baseline image.
type Processor struct {
	name   string
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	return &Processor{
		name:   "Region Change",
		logger: log,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

// RequiresReference is true: the reference input is the baseline.
func (p *Processor) RequiresReference() bool {
	return true
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"regions":           []Region(nil), // empty: whole image
		"default_threshold": 20.0,
		"min_area":          300.0,
		"blur_kernel":       11,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	if raw, exists := params["regions"]; exists && raw != nil {
		regions, ok := raw.([]Region)
		if !ok {
			return fmt.Errorf("regions must be []Region, got: %T", raw)
		}
		for i, r := range regions {
			if r.Rect.Empty() {
				return fmt.Errorf("region %d is empty: %v", i, r.Rect)
			}
			if r.Threshold < 0 || r.Threshold > 255 {
				return fmt.Errorf("region %d threshold must be between 0 and 255, got: %f", i, r.Threshold)
			}
		}
	}

	if threshold := p.getFloatParam(params, "default_threshold"); threshold < 0 || threshold > 255 {
		return fmt.Errorf("default_threshold must be between 0 and 255, got: %f", threshold)
	}

	if area := p.getFloatParam(params, "min_area"); area < 0 {
		return fmt.Errorf("min_area must not be negative, got: %f", area)
	}

	if kernel := p.getIntParam(params, "blur_kernel"); kernel < 1 || kernel > 31 || kernel%2 == 0 {
		return fmt.Errorf("blur_kernel must be odd number between 1 and 31, got: %d", kernel)
	}

	return nil
}

// Process returns a copy of primary with changed blobs boxed in red and the
// watched regions outlined in green.
func (p *Processor) Process(ctx context.Context, primary, reference *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	detections, regions, err := p.detect(ctx, primary, reference, params)
	if err != nil {
		return nil, err
	}

	annotated, err := primary.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to copy frame: %w", err)
	}

	dst := annotated.GetMatPtr()
	for _, r := range regions {
		gocv.Rectangle(dst, r.Rect, regionColor, 1)
	}
	for _, d := range detections {
		gocv.Rectangle(dst, d.Box, detectionColor, 3)
	}

	p.logger.Info("RegionChange", "changes detected", map[string]interface{}{
		"regions":    len(regions),
		"detections": len(detections),
	})

	return annotated, nil
}

// Detect lists changed blobs larger than min_area in every region.
func (p *Processor) Detect(ctx context.Context, frame, baseline *safe.Mat, params map[string]interface{}) ([]Detection, error) {
	detections, _, err := p.detect(ctx, frame, baseline, params)
	return detections, err
}

func (p *Processor) detect(ctx context.Context, frame, baseline *safe.Mat, params map[string]interface{}) ([]Detection, []Region, error) {
	if err := safe.ValidateColorImage(frame, "Region Change frame"); err != nil {
		return nil, nil, err
	}
	if err := safe.ValidateColorImage(baseline, "Region Change baseline"); err != nil {
		return nil, nil, err
	}
	if err := safe.ValidateSameSize(frame, baseline, "Region Change"); err != nil {
		return nil, nil, err
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	regions := p.regions(params, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	kernel := p.getIntParam(params, "blur_kernel")
	minArea := p.getFloatParam(params, "min_area")

	var detections []Detection
	for i, r := range regions {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		found, err := p.detectInRegion(frame, baseline, r, kernel, minArea)
		if err != nil {
			return nil, nil, fmt.Errorf("region %d: %w", i, err)
		}
		for _, d := range found {
			d.Region = i
			detections = append(detections, d)
		}
	}

	return detections, regions, nil
}

func (p *Processor) detectInRegion(frame, baseline *safe.Mat, r Region, kernel int, minArea float64) ([]Detection, error) {
	frameMat := frame.GetMat()
	baseMat := baseline.GetMat()

	frameRegion := frameMat.Region(r.Rect)
	defer frameRegion.Close()
	baseRegion := baseMat.Region(r.Rect)
	defer baseRegion.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(baseRegion, frameRegion, &diff)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	if kernel > 1 {
		gocv.GaussianBlur(gray, &gray, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, float32(r.Threshold), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var detections []Detection
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea {
			continue
		}
		box := gocv.BoundingRect(contour).Add(r.Rect.Min)
		detections = append(detections, Detection{Box: box, Area: area})
	}

	return detections, nil
}

// regions clips the configured regions to bounds; with none configured the
// whole frame is watched at the default threshold.
func (p *Processor) regions(params map[string]interface{}, bounds image.Rectangle) []Region {
	configured, _ := params["regions"].([]Region)
	if len(configured) == 0 {
		return []Region{{Rect: bounds, Threshold: p.getFloatParam(params, "default_threshold")}}
	}

	clipped := make([]Region, 0, len(configured))
	for _, r := range configured {
		rect := r.Rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		clipped = append(clipped, Region{Rect: rect, Threshold: r.Threshold})
	}
	return clipped
}

func (p *Processor) getFloatParam(params map[string]interface{}, name string) float64 {
	switch v := params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return p.GetDefaultParameters()[name].(float64)
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
