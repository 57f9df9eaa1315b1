package colortransfer

import (
	"fmt"

	"palette-porter/internal/colorstat"
	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// planeStats returns the mean and population standard deviation of a single
// channel plane.
func planeStats(plane *safe.Mat) (colorstat.Stats, error) {
	if err := safe.ValidateMatForOperation(plane, "plane statistics"); err != nil {
		return colorstat.Stats{}, err
	}

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()

	gocv.MeanStdDev(plane.GetMat(), &mean, &stddev)
	if mean.Empty() || stddev.Empty() {
		return colorstat.Stats{}, fmt.Errorf("no statistics for plane %q", plane.Tag())
	}

	return colorstat.Stats{
		Mean:   mean.GetDoubleAt(0, 0),
		StdDev: stddev.GetDoubleAt(0, 0),
	}, nil
}

func planeRange(plane *safe.Mat) (float64, float64) {
	lo, hi, _, _ := gocv.MinMaxLoc(plane.GetMat())
	return float64(lo), float64(hi)
}

// applyAffine rewrites every value v of plane as v*Alpha + Beta.
func applyAffine(plane *safe.Mat, a colorstat.Affine) {
	m := plane.GetMat()
	m.ConvertToWithParams(plane.GetMatPtr(), gocv.MatTypeCV32FC1, float32(a.Alpha), float32(a.Beta))
}

// clipPlane truncates plane to b.
func clipPlane(plane *safe.Mat, b colorstat.Bounds) {
	m := plane.GetMat()
	gocv.Threshold(m, plane.GetMatPtr(), float32(b.Max), 0, gocv.ThresholdTrunc)

	floor := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b.Min, 0, 0, 0), plane.Rows(), plane.Cols(), gocv.MatTypeCV32FC1)
	defer floor.Close()
	gocv.Max(m, floor, plane.GetMatPtr())
}

// fitPlane brings plane into b by clipping or by rescaling its actual range.
func fitPlane(plane *safe.Mat, b colorstat.Bounds, clip bool) colorstat.Plan {
	lo, hi := planeRange(plane)
	plan := colorstat.PlanFit(lo, hi, b, clip)

	switch plan.Fitting {
	case colorstat.Fill:
		plane.GetMatPtr().SetTo(gocv.NewScalar(plan.Value, 0, 0, 0))
	case colorstat.Clip:
		clipPlane(plane, b)
	case colorstat.Stretch:
		applyAffine(plane, plan.Map)
		clipPlane(plane, b)
	}

	return plan
}
