package regiondiff

import (
	"context"
	"image"
	"image/color"
	"testing"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	square     = image.Rect(40, 40, 70, 70)
	colorWhite = color.RGBA{R: 255, G: 255, B: 255}
)

func grayScene(t *testing.T, withSquare bool) *safe.Mat {
	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0), 100, 120, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if withSquare {
		gocv.Rectangle(&mat, square, colorWhite, -1)
	}

	sm, err := safe.NewMatFromMat(mat)
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	return sm
}

func TestDetectFindsInsertedSquare(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	detections, err := p.Detect(context.Background(), grayScene(t, true), grayScene(t, false), p.GetDefaultParameters())
	require.NoError(t, err)
	require.Len(t, detections, 1)

	d := detections[0]
	assert.Equal(t, 0, d.Region)
	assert.Greater(t, d.Area, 300.0)
	assert.InDelta(t, square.Min.X, d.Box.Min.X, 6)
	assert.InDelta(t, square.Min.Y, d.Box.Min.Y, 6)
	assert.InDelta(t, square.Max.X, d.Box.Max.X, 6)
	assert.InDelta(t, square.Max.Y, d.Box.Max.Y, 6)
}

func TestDetectIgnoresUnchangedFrame(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	detections, err := p.Detect(context.Background(), grayScene(t, false), grayScene(t, false), nil)
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestDetectOnlyInsideRegions(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	frame := grayScene(t, true)
	baseline := grayScene(t, false)

	params := p.GetDefaultParameters()
	params["regions"] = []Region{
		{Rect: image.Rect(0, 0, 30, 30), Threshold: 20},
		{Rect: image.Rect(30, 30, 200, 200), Threshold: 20},
	}

	detections, err := p.Detect(context.Background(), frame, baseline, params)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 1, detections[0].Region)
	assert.InDelta(t, square.Min.X, detections[0].Box.Min.X, 6)
}

func TestDetectThresholdAboveDifference(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	params := p.GetDefaultParameters()
	params["regions"] = []Region{{Rect: image.Rect(0, 0, 120, 100), Threshold: 250}}

	detections, err := p.Detect(context.Background(), grayScene(t, true), grayScene(t, false), params)
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestProcessAnnotatesFrame(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	frame := grayScene(t, true)

	result, err := p.Process(context.Background(), frame, grayScene(t, false), nil)
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, frame.Rows(), result.Rows())
	assert.Equal(t, frame.Cols(), result.Cols())

	mat := result.GetMat()
	corner := mat.GetVecbAt(0, 0)
	assert.Equal(t, uint8(255), corner[1], "region outline is green")

	original := frame.GetMat()
	assert.Equal(t, uint8(100), original.GetVecbAt(0, 0)[1], "input frame untouched")
}

func TestDetectRejectsSizeMismatch(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	small := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer small.Close()
	baseline, err := safe.NewMatFromMat(small)
	require.NoError(t, err)
	defer baseline.Close()

	_, err = p.Detect(context.Background(), grayScene(t, false), baseline, nil)
	assert.ErrorIs(t, err, safe.ErrInvalidInput)
}

func TestValidateParameters(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	assert.NoError(t, p.ValidateParameters(p.GetDefaultParameters()))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"blur_kernel": 4}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"min_area": -1.0}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"regions": "all"}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{
		"regions": []Region{{Rect: image.Rect(5, 5, 5, 5), Threshold: 10}},
	}))
}

func TestRegionsAreClippedToFrame(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	bounds := image.Rect(0, 0, 100, 50)

	got := p.regions(map[string]interface{}{
		"regions": []Region{
			{Rect: image.Rect(80, 40, 200, 200), Threshold: 12},
			{Rect: image.Rect(300, 300, 310, 310), Threshold: 12},
		},
	}, bounds)

	assert.Equal(t, []Region{{Rect: image.Rect(80, 40, 100, 50), Threshold: 12}}, got)
}
