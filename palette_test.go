package main

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paintOne(t *testing.T, s Scale, v float32, valid bool) color.NRGBA {
	t.Helper()
	img := s.Paint([]float32{v}, []bool{valid}, 1, 1)
	return img.NRGBAAt(0, 0)
}

func TestGradedBuckets(t *testing.T) {
	s := MSAScale(0.001)
	require.NoError(t, s.Validate())

	// interval [0.1, 0.2) holds 0.15
	assert.Equal(t, msaColors[1], paintOne(t, s, 0.15, true))
	// a value on a boundary belongs to the higher bucket
	assert.Equal(t, msaColors[1], paintOne(t, s, 0.1, true))
	// 1.0 lands in the last populated bucket
	assert.Equal(t, msaColors[9], paintOne(t, s, 1.0, true))
	assert.Equal(t, msaColors[9], paintOne(t, s, 0.95, true))
}

func TestGradedDomainClip(t *testing.T) {
	s := MSAScale(0)

	// numeric noise beyond the domain clips to the edges
	assert.Equal(t, msaColors[0], paintOne(t, s, -0.25, true))
	assert.Equal(t, msaColors[9], paintOne(t, s, 1.75, true))
	// domain edges themselves
	assert.Equal(t, msaColors[0], paintOne(t, s, 0.0, true))
	assert.Equal(t, msaColors[9], paintOne(t, s, 1.0, true))
}

func TestGradedBackgroundFolding(t *testing.T) {
	s := MSAScale(0.001)

	// below the significance threshold folds to background
	assert.Equal(t, oceanColor, paintOne(t, s, 0.0005, true))
	// so do masked and non-finite pixels, whatever their raw bucket
	assert.Equal(t, oceanColor, paintOne(t, s, 0.8, false))
	assert.Equal(t, oceanColor, paintOne(t, s, float32(math.NaN()), true))
	assert.Equal(t, oceanColor, paintOne(t, s, float32(math.Inf(1)), true))
	// at or above the threshold classifies normally
	assert.Equal(t, msaColors[0], paintOne(t, s, 0.001, true))
}

func TestGradedValidate(t *testing.T) {
	s := GradedScale{Bounds: []float64{0, 1}, Colors: msaColors}
	assert.Error(t, s.Validate(), "too few bounds for the color count")

	s = GradedScale{Bounds: []float64{0, 0.5, 0.2}, Colors: hexPalette("#000000", "#ffffff")}
	assert.Error(t, s.Validate(), "decreasing bounds")

	s = RampScale(substanceBounds["CO"])
	assert.NoError(t, s.Validate())
}

func TestRampTransparentBackground(t *testing.T) {
	s := RampScale(substanceBounds["SO2"])

	assert.Equal(t, color.NRGBA{}, paintOne(t, s, 0, true), "non-positive values are transparent")
	assert.Equal(t, color.NRGBA{}, paintOne(t, s, -3, true))
	assert.Equal(t, rampColors[0], paintOne(t, s, 0.0001, true))
	assert.Equal(t, rampColors[6], paintOne(t, s, 500, true), "open-ended top bin")
}

func TestCategoryScale(t *testing.T) {
	s := LandUseScale()
	require.NoError(t, s.Validate())

	assert.Equal(t, color.NRGBA{0, 69, 41, 255}, paintOne(t, s, 10, true))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, paintOne(t, s, 80, true))
	// codes survive float rounding
	assert.Equal(t, color.NRGBA{90, 90, 90, 255}, paintOne(t, s, 40.2, true))
	// unknown codes fall back
	assert.Equal(t, oceanColor, paintOne(t, s, 999, true))
	// masked pixels are background
	assert.Equal(t, oceanColor, paintOne(t, s, 10, false))

	empty := CategoryScale{}
	assert.Error(t, empty.Validate())
}

func TestHexColor(t *testing.T) {
	c, err := hexColor("#1f78b4")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x1f, 0x78, 0xb4, 0xff}, c)

	c, err = hexColor("00441b80")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x00, 0x44, 0x1b, 0x80}, c)

	_, err = hexColor("#12345")
	assert.Error(t, err)
	_, err = hexColor("#zzzzzz")
	assert.Error(t, err)
}
