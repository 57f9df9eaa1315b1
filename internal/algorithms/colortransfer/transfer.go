// Package colortransfer moves the colour mood of one image onto another by
// matching per-channel L*a*b* means and standard deviations (Reinhard et al.,
// "Color Transfer between Images", 2001).
package colortransfer

import (
	"fmt"

	"palette-porter/internal/colorstat"
	"palette-porter/internal/opencv/conversion"
	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrInvalidInput is returned for missing, empty or non-BGR images.
var ErrInvalidInput = safe.ErrInvalidInput

// Options controls how the recentred channels are scaled and fitted.
//
// Clip truncates out-of-range values; otherwise each channel is min-max
// rescaled into its valid range. PreservePaper scales by tarStd/srcStd as in
// the paper; otherwise by the reciprocal, which often looks better.
type Options struct {
	Clip          bool
	PreservePaper bool
}

func DefaultOptions() Options {
	return Options{Clip: true, PreservePaper: true}
}

// Report describes one transfer for logging.
type Report struct {
	Source     [3]colorstat.Stats
	Target     [3]colorstat.Stats
	Factors    [3]float64
	Degenerate [3]bool
	Fittings   [3]colorstat.Fitting
}

// Transfer returns a new BGR image with target's content and source's colour
// statistics. Neither input is modified.
func Transfer(source, target *safe.Mat, opts Options) (*safe.Mat, error) {
	result, _, err := transfer(source, target, opts)
	return result, err
}

func transfer(source, target *safe.Mat, opts Options) (*safe.Mat, Report, error) {
	var report Report

	if err := safe.ValidateColorImage(source, "color transfer source"); err != nil {
		return nil, report, err
	}
	if err := safe.ValidateColorImage(target, "color transfer target"); err != nil {
		return nil, report, err
	}

	srcPlanes, err := labPlanes(source)
	if err != nil {
		return nil, report, fmt.Errorf("source: %w", err)
	}
	defer closeAll(srcPlanes)

	tarPlanes, err := labPlanes(target)
	if err != nil {
		return nil, report, fmt.Errorf("target: %w", err)
	}
	defer closeAll(tarPlanes)

	for ch := 0; ch < 3; ch++ {
		srcStats, err := planeStats(srcPlanes[ch])
		if err != nil {
			return nil, report, err
		}
		tarStats, err := planeStats(tarPlanes[ch])
		if err != nil {
			return nil, report, err
		}

		report.Source[ch] = srcStats
		report.Target[ch] = tarStats
		report.Factors[ch] = colorstat.ScaleFactor(srcStats, tarStats, opts.PreservePaper)
		report.Degenerate[ch] = colorstat.IsDegenerate(srcStats, tarStats)

		applyAffine(tarPlanes[ch], colorstat.Recentering(srcStats, tarStats, opts.PreservePaper))
		report.Fittings[ch] = fitPlane(tarPlanes[ch], colorstat.LabBounds[ch], opts.Clip).Fitting
	}

	merged, err := safe.NewMat(target.Rows(), target.Cols(), gocv.MatTypeCV32FC3)
	if err != nil {
		return nil, report, fmt.Errorf("failed to create merged L*a*b* Mat: %w", err)
	}
	defer merged.Close()

	gocv.Merge([]gocv.Mat{
		tarPlanes[0].GetMat(),
		tarPlanes[1].GetMat(),
		tarPlanes[2].GetMat(),
	}, merged.GetMatPtr())

	result, err := conversion.FromLab(merged)
	if err != nil {
		return nil, report, err
	}

	return result, report, nil
}

// Measure returns the L*a*b* statistics of a BGR image, channel order L, a, b.
func Measure(img *safe.Mat) ([3]colorstat.Stats, error) {
	var stats [3]colorstat.Stats

	if err := safe.ValidateColorImage(img, "color statistics"); err != nil {
		return stats, err
	}

	planes, err := labPlanes(img)
	if err != nil {
		return stats, err
	}
	defer closeAll(planes)

	for ch := range planes {
		if stats[ch], err = planeStats(planes[ch]); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// labPlanes converts img to float L*a*b* and splits it into three owned
// single channel Mats.
func labPlanes(img *safe.Mat) ([3]*safe.Mat, error) {
	var planes [3]*safe.Mat

	lab, err := conversion.ToLab(img)
	if err != nil {
		return planes, err
	}
	defer lab.Close()

	split := gocv.Split(lab.GetMat())
	if len(split) != 3 {
		for _, m := range split {
			m.Close()
		}
		return planes, fmt.Errorf("%w: expected 3 L*a*b* channels, got %d", ErrInvalidInput, len(split))
	}

	for i, m := range split {
		planes[i], err = safe.Adopt(m, nil, fmt.Sprintf("lab_%d", i))
		if err != nil {
			for _, rest := range split[i+1:] {
				rest.Close()
			}
			closeAll(planes)
			return planes, fmt.Errorf("failed to adopt channel %d: %w", i, err)
		}
	}

	return planes, nil
}

func closeAll(mats [3]*safe.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
