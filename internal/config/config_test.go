package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"palette-porter/internal/algorithms/regiondiff"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Transfer.Clip)
	assert.True(t, cfg.Transfer.PreservePaper)
	assert.Equal(t, 300, cfg.Viewer.Width)
	assert.Nil(t, cfg.Regions())
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
transfer:
  clip: false
mask:
  lower: [100, 50, 50]
  upper: [130, 255, 255]
  output: inverted
diff:
  min_area: 150
  regions:
    - {x: 10, y: 20, width: 30, height: 40, threshold: 35}
    - {x: 0, y: 0, width: 5, height: 5}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Transfer.Clip)
	assert.True(t, cfg.Transfer.PreservePaper, "unset keys keep defaults")
	assert.Equal(t, [3]int{100, 50, 50}, cfg.Mask.Lower)
	assert.Equal(t, "inverted", cfg.MaskParams()["output"])
	assert.Equal(t, 150.0, cfg.DiffParams()["min_area"])
	assert.Equal(t, 11, cfg.DiffParams()["blur_kernel"])

	want := []regiondiff.Region{
		{Rect: image.Rect(10, 20, 40, 60), Threshold: 35},
		{Rect: image.Rect(0, 0, 5, 5), Threshold: 20},
	}
	if diff := cmp.Diff(want, cfg.Regions()); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "colour: red"},
		{"bad log level", "log_level: loud"},
		{"mask bounds inverted", "mask: {lower: [0, 0, 200], upper: [255, 255, 100]}"},
		{"mask output", "mask: {output: sepia}"},
		{"even kernel", "diff: {blur_kernel: 4}"},
		{"empty region", "diff: {regions: [{x: 1, y: 1, width: 0, height: 3}]}"},
		{"viewer width", "viewer: {width: 0}"},
		{"not yaml", "transfer: [clip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTransferParams(t *testing.T) {
	cfg := Default()
	cfg.Transfer.PreservePaper = false

	assert.Equal(t, map[string]interface{}{"clip": true, "preserve_paper": false}, cfg.TransferParams())
}
