// Package colorstat holds the per-channel rules of the colour transfer: the
// scale factor between two distributions, the affine map that recentres one
// onto the other, and how a channel's actual range is fitted back into its
// valid bounds. The pixel work itself runs on OpenCV Mats.
package colorstat

// Stats is the mean and population standard deviation of a plane.
type Stats struct {
	Mean   float64
	StdDev float64
}

// Bounds is the valid value range of a channel.
type Bounds struct {
	Min float64
	Max float64
}

// Ranges of float32 CIE L*a*b* as produced by OpenCV.
var (
	LightnessBounds = Bounds{Min: 0, Max: 100}
	ChromaBounds    = Bounds{Min: -127, Max: 127}
)

// LabBounds lists the bounds of the L, a and b channels in order.
var LabBounds = [3]Bounds{LightnessBounds, ChromaBounds, ChromaBounds}

func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Affine is the map v*Alpha + Beta.
type Affine struct {
	Alpha float64
	Beta  float64
}

var Identity = Affine{Alpha: 1}

func (a Affine) Apply(v float64) float64 {
	return v*a.Alpha + a.Beta
}

// IsDegenerate reports whether a flat channel is involved, in which case
// ScaleFactor falls back to 1.
func IsDegenerate(src, tar Stats) bool {
	return src.StdDev == 0 || tar.StdDev == 0
}

// ScaleFactor is tarStd/srcStd when preservePaper is set and srcStd/tarStd
// otherwise.
func ScaleFactor(src, tar Stats, preservePaper bool) float64 {
	if IsDegenerate(src, tar) {
		return 1
	}
	if preservePaper {
		return tar.StdDev / src.StdDev
	}
	return src.StdDev / tar.StdDev
}

// Recentering moves a value from the tar distribution onto the src one:
// subtract tar's mean, scale, add src's mean.
func Recentering(src, tar Stats, preservePaper bool) Affine {
	factor := ScaleFactor(src, tar, preservePaper)
	return Affine{Alpha: factor, Beta: src.Mean - tar.Mean*factor}
}

// Fitting says what brings a plane into its bounds.
type Fitting int

const (
	// Keep leaves a plane that is already inside its bounds.
	Keep Fitting = iota
	// Fill sets every value of a flat plane to Plan.Value.
	Fill
	// Clip truncates to the bounds.
	Clip
	// Stretch applies Plan.Map, then truncates rounding overshoot.
	Stretch
)

func (f Fitting) String() string {
	switch f {
	case Keep:
		return "keep"
	case Fill:
		return "fill"
	case Clip:
		return "clip"
	case Stretch:
		return "stretch"
	}
	return "unknown"
}

// Plan is the fitting chosen for one plane.
type Plan struct {
	Fitting Fitting
	Map     Affine
	Value   float64
}

// PlanRescale maps a plane with actual range [lo, hi] linearly onto
// [max(lo, b.Min), min(hi, b.Max)]. A plane already inside b is kept and a
// flat one becomes its value clamped to b. When the whole plane lies beyond
// one bound the intersection is empty and the plane is clipped.
func PlanRescale(lo, hi float64, b Bounds) Plan {
	if b.Contains(lo) && b.Contains(hi) {
		return Plan{Fitting: Keep, Map: Identity}
	}

	if lo == hi {
		return Plan{Fitting: Fill, Value: b.Clamp(lo)}
	}

	newLo := lo
	if newLo < b.Min {
		newLo = b.Min
	}
	newHi := hi
	if newHi > b.Max {
		newHi = b.Max
	}

	if newLo > newHi {
		return Plan{Fitting: Clip}
	}

	alpha := (newHi - newLo) / (hi - lo)
	return Plan{
		Fitting: Stretch,
		Map:     Affine{Alpha: alpha, Beta: newLo - lo*alpha},
	}
}

// PlanFit picks clipping or PlanRescale.
func PlanFit(lo, hi float64, b Bounds, clip bool) Plan {
	if clip {
		return Plan{Fitting: Clip}
	}
	return PlanRescale(lo, hi, b)
}
