package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	for _, s := range []string{"yes", "YES", "true", "t", "y", "1", " Y "} {
		v, err := parseBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}

	for _, s := range []string{"no", "false", "F", "n", "0"} {
		v, err := parseBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}

	for _, s := range []string{"", "maybe", "2", "on"} {
		_, err := parseBool(s)
		assert.Error(t, err, s)
	}
}

func TestBoolValue(t *testing.T) {
	b := newBoolValue(true)
	assert.Equal(t, "true", b.String())
	assert.Equal(t, "yes|no", b.Type())

	require.NoError(t, b.Set("n"))
	assert.False(t, b.value)
	assert.Error(t, b.Set("sometimes"))
	assert.False(t, b.value)
}

func TestTransferUsageShowsBoolPlaceholder(t *testing.T) {
	usage := newTransferCmd(&globalOptions{}).Flags().FlagUsages()

	assert.Contains(t, usage, "--clip yes|no")
	assert.Contains(t, usage, "--preserve-paper yes|no")
}

func TestParseHSV(t *testing.T) {
	hsv, err := parseHSV("100, 50,255")
	require.NoError(t, err)
	assert.Equal(t, [3]int{100, 50, 255}, hsv)

	for _, s := range []string{"1,2", "1,2,3,4", "a,b,c", "0,0,256", "-1,0,0"} {
		_, err := parseHSV(s)
		assert.Error(t, err, s)
	}
}

func TestMaskParamsOnlyChangedFlags(t *testing.T) {
	cmd := newMaskCmd(&globalOptions{})

	params, err := maskParams(cmd, "", "", "")
	require.NoError(t, err)
	assert.Empty(t, params)

	require.NoError(t, cmd.Flags().Set("lower", "10,20,30"))
	require.NoError(t, cmd.Flags().Set("output-mode", "mask"))

	params, err = maskParams(cmd, "10,20,30", "", "mask")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"lower_h": 10,
		"lower_s": 20,
		"lower_v": 30,
		"output":  "mask",
	}, params)

	require.NoError(t, cmd.Flags().Set("upper", "1,2"))
	_, err = maskParams(cmd, "10,20,30", "1,2", "mask")
	assert.Error(t, err)
}

func TestTransferFlagRejectsBadBoolean(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"transfer", "-s", "a.png", "-t", "b.png", "-c", "perhaps"})

	assert.Error(t, cmd.Execute())
}

func TestTransferRequiresImages(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"transfer", "-s", "a.png"})

	assert.Error(t, cmd.Execute())
}

func TestAlgorithmsCommandListsRegistry(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"algorithms", "--log-level", "error"})

	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "Color Transfer\n  clip=yes preserve_paper=yes")
	assert.Contains(t, text, "Color Range Mask")
	assert.Contains(t, text, "Region Change")
}
