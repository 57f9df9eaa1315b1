package rangemask

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// halfWhite is white on the left half and a dark brown on the right.
func halfWhite(t *testing.T) *safe.Mat {
	t.Helper()

	const rows, cols = 4, 8
	data := make([]byte, 0, rows*cols*3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if x < cols/2 {
				data = append(data, 255, 255, 255)
			} else {
				data = append(data, 10, 20, 50)
			}
		}
	}

	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	defer mat.Close()

	sm, err := safe.NewMatFromMat(mat)
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	return sm
}

func pixel(t *testing.T, m *safe.Mat, x, y int) [3]uint8 {
	t.Helper()
	mat := m.GetMat()
	v := mat.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func TestMaskedOutputKeepsBrightPixels(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	img := halfWhite(t)

	result, err := p.Process(context.Background(), img, nil, p.GetDefaultParameters())
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, [3]uint8{255, 255, 255}, pixel(t, result, 0, 0))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(t, result, 7, 3))
}

func TestMaskAndInvertedOutputs(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	img := halfWhite(t)

	params := p.GetDefaultParameters()
	params["output"] = OutputMask
	mask, err := p.Process(context.Background(), img, nil, params)
	require.NoError(t, err)
	defer mask.Close()

	params["output"] = OutputInverted
	inverted, err := p.Process(context.Background(), img, nil, params)
	require.NoError(t, err)
	defer inverted.Close()

	assert.Equal(t, 3, mask.Channels())
	assert.Equal(t, [3]uint8{255, 255, 255}, pixel(t, mask, 1, 1))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(t, mask, 6, 1))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(t, inverted, 1, 1))
	assert.Equal(t, [3]uint8{255, 255, 255}, pixel(t, inverted, 6, 1))
}

func TestValidateParameters(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{"defaults", p.GetDefaultParameters(), false},
		{"float from yaml", map[string]interface{}{"lower_v": 200.0}, false},
		{"out of range", map[string]interface{}{"upper_s": 300}, true},
		{"negative", map[string]interface{}{"lower_h": -1}, true},
		{"inverted bounds", map[string]interface{}{"lower_s": 200, "upper_s": 100}, true},
		{"unknown output", map[string]interface{}{"output": "sepia"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateParameters(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessRejectsGrayInput(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	grayMat := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	defer grayMat.Close()
	gray, err := safe.NewMatFromMat(grayMat)
	require.NoError(t, err)
	defer gray.Close()

	_, err = p.Process(context.Background(), gray, nil, nil)
	assert.ErrorIs(t, err, safe.ErrInvalidInput)
}

func TestProcessLogsSelectedPixelCount(t *testing.T) {
	var buf bytes.Buffer
	p := NewProcessor(logger.NewZerolog(&buf, zerolog.InfoLevel))

	result, err := p.Process(context.Background(), halfWhite(t), nil, map[string]interface{}{"output": OutputMask})
	require.NoError(t, err)
	defer result.Close()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ColorRangeMask", entry["component"])
	assert.EqualValues(t, 16, entry["selected_pixels"])
	assert.EqualValues(t, 32, entry["total_pixels"])
	assert.Equal(t, OutputMask, entry["output"])
}
