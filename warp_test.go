package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// full-globe 10-degree grid whose western hemisphere is nodata
func halfGlobeDataset(t *testing.T) *Dataset {
	t.Helper()
	dir := t.TempDir()
	layer := globalLayer("half_globe", 36, 18)
	pix := constPix(36*18, 7)
	for r := 0; r < 18; r++ {
		for c := 0; c < 18; c++ {
			pix[r*36+c] = -999
		}
	}
	path := writeTestDataset(t, dir, "half_globe", layer, pix)
	d, err := OpenDataset(path)
	require.NoError(t, err)
	return d
}

// resolution that warps the world square into a 64x64 view; padded a
// little over the exact fit so ceil rounding stays deterministic
const testRes = WebMercMax / 32 * 1.01

func TestWarpedViewConfigErrors(t *testing.T) {
	d := halfGlobeDataset(t)

	noCRS := *d
	noCRS.Proj4 = ""
	_, err := NewWarpedView(&noCRS, testRes, Bilinear, -85)
	assert.Error(t, err, "missing source projection must fail fast")

	projected := *d
	projected.Proj4 = "+proj=merc +a=6378137 +b=6378137 +units=m +no_defs"
	_, err = NewWarpedView(&projected, testRes, Bilinear, -85)
	assert.Error(t, err, "non-geographic source must fail fast")

	_, err = NewWarpedView(d, 0, Bilinear, -85)
	assert.Error(t, err, "resolution must be positive")
}

func TestWarpedViewDimensions(t *testing.T) {
	d := halfGlobeDataset(t)

	v, err := NewWarpedView(d, testRes, Bilinear, -85)
	require.NoError(t, err)
	assert.Equal(t, 64, v.Width)
	assert.Equal(t, 64, v.Height)
	assert.InDelta(t, -WebMercMax, v.Transform[0], 1.0)
	assert.InDelta(t, WebMercMax, v.Transform[3], 1.0)
	assert.Equal(t, testRes, v.Transform[1])
	assert.Equal(t, -testRes, v.Transform[5])
}

func TestWarpedViewReadNearest(t *testing.T) {
	d := halfGlobeDataset(t)
	v, err := NewWarpedView(d, testRes, Nearest, -85)
	require.NoError(t, err)

	// one row across the equator
	vals, valid := v.Read(Window{Col: 0, Row: 31, Width: 64, Height: 1})
	require.Len(t, vals, 64)

	assert.False(t, valid[0], "western nodata hemisphere")
	assert.False(t, valid[31], "still west of the antimeridian seam")
	assert.True(t, valid[32], "eastern hemisphere carries data")
	assert.Equal(t, float32(7), vals[32])
	assert.True(t, valid[62])
	assert.Equal(t, float32(7), vals[62])
	// past 180 the seam wraps back onto the nodata west edge
	assert.False(t, valid[63])

	for i, ok := range valid {
		if ok {
			assert.Equal(t, float32(7), vals[i], "pixel %d", i)
		}
	}
}

func TestWarpedViewReadBilinear(t *testing.T) {
	d := halfGlobeDataset(t)
	v, err := NewWarpedView(d, testRes, Bilinear, -85)
	require.NoError(t, err)

	vals, valid := v.Read(Window{Col: 0, Row: 31, Width: 64, Height: 1})

	assert.True(t, valid[40])
	assert.InDelta(t, 7, float64(vals[40]), 1e-5, "constant field survives interpolation")
	// next to the nodata edge only the valid neighbors contribute
	assert.True(t, valid[31])
	assert.InDelta(t, 7, float64(vals[31]), 1e-5)
	assert.False(t, valid[5], "deep inside the nodata hemisphere")
}

func TestWarpedViewMinLatitude(t *testing.T) {
	d := halfGlobeDataset(t)

	v, err := NewWarpedView(d, testRes, Nearest, -30)
	require.NoError(t, err)
	vals, valid := v.Read(Window{Col: 40, Row: 0, Width: 1, Height: 64})
	require.Len(t, vals, 64)
	assert.True(t, valid[31], "equator row stays")
	assert.False(t, valid[40], "south of the cutoff latitude is folded away")

	relaxed, err := NewWarpedView(d, testRes, Nearest, -85)
	require.NoError(t, err)
	_, valid = relaxed.Read(Window{Col: 40, Row: 0, Width: 1, Height: 64})
	assert.True(t, valid[40], "same row survives a lower cutoff")
}

func TestWrapCol(t *testing.T) {
	d := halfGlobeDataset(t)
	v, err := NewWarpedView(d, testRes, Nearest, -85)
	require.NoError(t, err)

	c, ok := v.wrapCol(-1)
	assert.True(t, ok)
	assert.Equal(t, 35, c)
	c, ok = v.wrapCol(36)
	assert.True(t, ok)
	assert.Equal(t, 0, c)

	// a regional grid must not wrap
	regional := *d
	regional.Geotransform = []float64{110, 0.1, 0, -10, 0, -0.1}
	rv, err := NewWarpedView(&regional, testRes, Nearest, -85)
	require.NoError(t, err)
	_, ok = rv.wrapCol(-1)
	assert.False(t, ok)
}
