package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectScale(t *testing.T) {
	cases := []struct {
		name      string
		substance string
		known     bool
	}{
		{"v8.1_EM_PM2.5_2022", "PM2.5", true},
		{"EDGAR_PM25_2022", "PM2.5", true},
		{"v8.1_EM_CO_2022", "CO", true},
		{"v8.1_EM_NH3_2022", "NH3", true},
		{"v8.1_EM_SO2_2022", "SO2", true},
		{"v8.1_EM_NOx_2022", "NOX", true},
		{"v8.1_TOX_HG_2018", "TOX_Hg", true},
		{"GLOBIO4_MSA_2015_World", "MSA", true},
		{"GLOBIO4_LU_2015", "LU", true},
		{"some_random_grid", "UNKNOWN", false},
	}
	for _, c := range cases {
		spec := DetectScale(c.name, 0.001)
		assert.Equal(t, c.substance, spec.Substance, c.name)
		assert.Equal(t, c.known, spec.Known, c.name)
		if c.known {
			require.NotNil(t, spec.Scale, c.name)
			assert.NoError(t, spec.Scale.Validate(), c.name)
		} else {
			assert.Nil(t, spec.Scale, c.name)
		}
	}
}

func TestScaleResamplingPolicy(t *testing.T) {
	assert.Equal(t, Bilinear, MSAScale(0.001).Resampling(), "continuous index resamples bilinearly")
	assert.Equal(t, Nearest, LandUseScale().Resampling(), "class codes resample nearest")
}

func TestPercentileBounds(t *testing.T) {
	sample := make([]float32, 101)
	for i := range sample {
		sample[i] = float32(i + 1) // 1..101
	}

	bounds := PercentileBounds(sample)
	require.Len(t, bounds, len(rampColors)+1)
	assert.InDelta(t, 1, bounds[0], 1e-9)
	assert.InDelta(t, 101, bounds[len(bounds)-1], 1e-9)
	assert.InDelta(t, 51, bounds[3], 1e-9) // median
	for i := 1; i < len(bounds); i++ {
		assert.GreaterOrEqual(t, bounds[i], bounds[i-1])
	}

	assert.Nil(t, PercentileBounds(nil))
}

func TestSampleValues(t *testing.T) {
	dir := t.TempDir()
	layer := globalLayer("mystery_grid", 10, 2)
	pix := constPix(20, 2.5)
	pix[0] = -999           // nodata
	pix[1] = -1             // negative is insignificant
	pix[2] = 0              // zero is insignificant
	path := writeTestDataset(t, dir, "mystery_grid", layer, pix)

	d, err := OpenDataset(path)
	require.NoError(t, err)

	sample := SampleValues(d, 1000)
	assert.Len(t, sample, 17)
	for _, v := range sample {
		assert.Equal(t, float32(2.5), v)
	}
}
