package conversion

import (
	"testing"

	"palette-porter/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(t *testing.T, b, g, r float64) *safe.Mat {
	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), 2, 3, gocv.MatTypeCV8UC3)
	defer mat.Close()

	sm, err := safe.NewMatFromMat(mat)
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	return sm
}

func labAt(t *testing.T, lab *safe.Mat) [3]float32 {
	t.Helper()
	require.Equal(t, gocv.MatTypeCV32FC3, lab.Type())
	m := lab.GetMat()
	v := m.GetVecfAt(0, 0)
	return [3]float32{v[0], v[1], v[2]}
}

func TestToLabRanges(t *testing.T) {
	white, err := ToLab(solid(t, 255, 255, 255))
	require.NoError(t, err)
	defer white.Close()

	assert.Equal(t, gocv.MatTypeCV32FC3, white.Type())
	l := labAt(t, white)
	assert.InDelta(t, 100, l[0], 0.5)
	assert.InDelta(t, 0, l[1], 0.5)
	assert.InDelta(t, 0, l[2], 0.5)

	black, err := ToLab(solid(t, 0, 0, 0))
	require.NoError(t, err)
	defer black.Close()
	assert.InDelta(t, 0, labAt(t, black)[0], 0.5)

	red, err := ToLab(solid(t, 0, 0, 255))
	require.NoError(t, err)
	defer red.Close()
	assert.Greater(t, labAt(t, red)[1], float32(50), "red has a strong positive a*")
}

func TestLabRoundTrip(t *testing.T) {
	src := solid(t, 30, 140, 220)

	lab, err := ToLab(src)
	require.NoError(t, err)
	defer lab.Close()

	back, err := FromLab(lab)
	require.NoError(t, err)
	defer back.Close()

	m := back.GetMat()
	px := m.GetVecbAt(1, 2)
	assert.InDelta(t, 30, int(px[0]), 1)
	assert.InDelta(t, 140, int(px[1]), 1)
	assert.InDelta(t, 220, int(px[2]), 1)
}

func TestToLabRejectsGray(t *testing.T) {
	gray, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer gray.Close()

	_, err = ToLab(gray)
	assert.ErrorIs(t, err, safe.ErrInvalidInput)
}

func TestGrayAndBGR(t *testing.T) {
	src := solid(t, 10, 200, 90)

	gray, err := ConvertToGrayscale(src)
	require.NoError(t, err)
	defer gray.Close()
	assert.Equal(t, 1, gray.Channels())

	bgr, err := ConvertToBGR(gray)
	require.NoError(t, err)
	defer bgr.Close()
	assert.Equal(t, 3, bgr.Channels())

	m := bgr.GetMat()
	px := m.GetVecbAt(0, 0)
	assert.Equal(t, px[0], px[1])
	assert.Equal(t, px[1], px[2])
}

func TestConvertToHSV(t *testing.T) {
	hsv, err := ConvertToHSV(solid(t, 255, 255, 255))
	require.NoError(t, err)
	defer hsv.Close()

	m := hsv.GetMat()
	px := m.GetVecbAt(0, 0)
	assert.Equal(t, uint8(0), px[1], "white has no saturation")
	assert.Equal(t, uint8(255), px[2])
}
