package colortransfer

import (
	"testing"

	"palette-porter/internal/colorstat"
	"palette-porter/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func floatPlane(t *testing.T, values ...float32) *safe.Mat {
	t.Helper()

	m := gocv.NewMatWithSize(1, len(values), gocv.MatTypeCV32FC1)
	for i, v := range values {
		m.SetFloatAt(0, i, v)
	}

	plane, err := safe.Adopt(m, nil, "plane")
	require.NoError(t, err)
	t.Cleanup(plane.Close)
	return plane
}

func planeValues(plane *safe.Mat) []float32 {
	m := plane.GetMat()
	values := make([]float32, m.Cols())
	for i := range values {
		values[i] = m.GetFloatAt(0, i)
	}
	return values
}

func assertPlane(t *testing.T, want []float32, plane *safe.Mat) {
	t.Helper()

	got := planeValues(plane)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-3, "value %d", i)
	}
}

func TestPlaneStatsIsPopulationStatistics(t *testing.T) {
	stats, err := planeStats(floatPlane(t, 2, 4, 4, 4, 5, 5, 7, 9))
	require.NoError(t, err)

	assert.InDelta(t, 5, stats.Mean, 1e-9)
	assert.InDelta(t, 2, stats.StdDev, 1e-9)
}

func TestPlaneStatsRejectsClosedPlane(t *testing.T) {
	plane := floatPlane(t, 1, 2)
	plane.Close()

	_, err := planeStats(plane)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyAffineRecentersOntoSource(t *testing.T) {
	target := floatPlane(t, 10, 20, 30, 40, 50, 60)
	tarStats, err := planeStats(target)
	require.NoError(t, err)
	srcStats := colorstat.Stats{Mean: 5, StdDev: 3}

	applyAffine(target, colorstat.Recentering(srcStats, tarStats, false))

	got, err := planeStats(target)
	require.NoError(t, err)
	assert.InDelta(t, srcStats.Mean, got.Mean, 1e-4)
	assert.InDelta(t, srcStats.StdDev, got.StdDev, 1e-4)
}

func TestApplyAffineSingleValueOntoFlatSource(t *testing.T) {
	target := floatPlane(t, 9)
	tarStats, err := planeStats(target)
	require.NoError(t, err)

	applyAffine(target, colorstat.Recentering(colorstat.Stats{Mean: 1}, tarStats, true))

	assertPlane(t, []float32{1}, target)
}

func TestClipPlane(t *testing.T) {
	plane := floatPlane(t, -20, 0, 50, 100, 130)
	clipPlane(plane, colorstat.LightnessBounds)

	assertPlane(t, []float32{0, 0, 50, 100, 100}, plane)
}

func TestFitPlane(t *testing.T) {
	tests := []struct {
		name    string
		in      []float32
		bounds  colorstat.Bounds
		clip    bool
		want    []float32
		fitting colorstat.Fitting
	}{
		{"clip", []float32{-10, 40, 90, 120}, colorstat.LightnessBounds, true, []float32{0, 40, 90, 100}, colorstat.Clip},
		{"inside bounds untouched", []float32{10, 20, 90}, colorstat.LightnessBounds, false, []float32{10, 20, 90}, colorstat.Keep},
		{"actual range intersected", []float32{20, 80, 140}, colorstat.LightnessBounds, false, []float32{20, 60, 100}, colorstat.Stretch},
		{"lower chroma overshoot", []float32{-130, 0, 50}, colorstat.ChromaBounds, false, []float32{-127, 0.8333, 50}, colorstat.Stretch},
		{"both ends out of range", []float32{-200, 0, 200}, colorstat.ChromaBounds, false, []float32{-127, 0, 127}, colorstat.Stretch},
		{"flat plane out of range", []float32{150, 150, 150}, colorstat.LightnessBounds, false, []float32{100, 100, 100}, colorstat.Fill},
		{"whole plane beyond one bound", []float32{-200, -150}, colorstat.ChromaBounds, false, []float32{-127, -127}, colorstat.Clip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plane := floatPlane(t, tt.in...)

			plan := fitPlane(plane, tt.bounds, tt.clip)

			assert.Equal(t, tt.fitting, plan.Fitting)
			assertPlane(t, tt.want, plane)
		})
	}
}

func TestClipAndRescaleDivergeAtBoundary(t *testing.T) {
	clipped := floatPlane(t, -10, 40, 90, 120)
	scaled := floatPlane(t, -10, 40, 90, 120)

	fitPlane(clipped, colorstat.LightnessBounds, true)
	fitPlane(scaled, colorstat.LightnessBounds, false)

	assert.Less(t, planeValues(scaled)[2], planeValues(clipped)[2])

	lo, hi := planeRange(scaled)
	assert.InDelta(t, 0, lo, 1e-4)
	assert.InDelta(t, 100, hi, 1e-4)
}
