package colortransfer

import (
	"context"
	"fmt"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"
)

type Processor struct {
	name   string
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	return &Processor{
		name:   "Color Transfer",
		logger: log,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

// RequiresReference is true: the reference input is the colour source.
func (p *Processor) RequiresReference() bool {
	return true
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	defaults := DefaultOptions()
	return map[string]interface{}{
		"clip":           defaults.Clip,
		"preserve_paper": defaults.PreservePaper,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	for _, name := range []string{"clip", "preserve_paper"} {
		value, exists := params[name]
		if !exists {
			continue
		}
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a bool, got: %T", name, value)
		}
	}
	return nil
}

// Process transfers the colour statistics of reference (the source) onto
// primary (the target).
func (p *Processor) Process(ctx context.Context, primary, reference *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if reference == nil {
		return nil, fmt.Errorf("%w: color transfer needs a source image", ErrInvalidInput)
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	opts := p.options(params)
	result, report, err := transfer(reference, primary, opts)
	if err != nil {
		return nil, err
	}

	for ch, name := range [3]string{"L", "a", "b"} {
		if report.Degenerate[ch] {
			p.logger.Debug("ColorTransfer", "flat channel, scaling skipped", map[string]interface{}{
				"channel":    name,
				"source_std": report.Source[ch].StdDev,
				"target_std": report.Target[ch].StdDev,
			})
		}
	}

	p.logger.Debug("ColorTransfer", "statistics matched", map[string]interface{}{
		"clip":           opts.Clip,
		"preserve_paper": opts.PreservePaper,
		"source_mean":    []float64{report.Source[0].Mean, report.Source[1].Mean, report.Source[2].Mean},
		"target_mean":    []float64{report.Target[0].Mean, report.Target[1].Mean, report.Target[2].Mean},
		"factors":        report.Factors[:],
		"fittings":       []string{report.Fittings[0].String(), report.Fittings[1].String(), report.Fittings[2].String()},
	})

	if ctx.Err() != nil {
		result.Close()
		return nil, ctx.Err()
	}

	return result, nil
}

func (p *Processor) options(params map[string]interface{}) Options {
	opts := DefaultOptions()
	if v, ok := params["clip"].(bool); ok {
		opts.Clip = v
	}
	if v, ok := params["preserve_paper"].(bool); ok {
		opts.PreservePaper = v
	}
	return opts
}
