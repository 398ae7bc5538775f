package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// EPSG:3857 world square half-extent in meters
	WebMercMax = 20037508.342789244
	// latitude where the mercator world square closes
	MercLatMax = 85.05112877980659
)

// Resampling selects how source pixels are combined into a warped value
type Resampling int

const (
	// Bilinear preserves continuous indices
	Bilinear Resampling = iota
	// Nearest preserves discrete class codes
	Nearest
)

// WarpedView exposes a geographic source raster as a virtual EPSG:3857
// grid at a fixed ground resolution. Nothing is materialized until a
// window is read; reads resample on the fly.
type WarpedView struct {
	src        *Dataset
	Width      int
	Height     int
	Transform  [6]float64 // [left, res, 0, top, 0, -res]
	res        float64
	resampling Resampling
	minLat     float64
	wrapLon    bool
}

// NewWarpedView builds the virtual destination raster. It fails fast when
// the source projection is missing or not geographic, so a run never
// proceeds on an assumed CRS.
func NewWarpedView(src *Dataset, res float64, rs Resampling, minLat float64) (*WarpedView, error) {
	if src.Proj4 == "" {
		return nil, fmt.Errorf("layer %s: source has no projection, cannot warp", src.Name)
	}
	if !strings.Contains(src.Proj4, "+proj=longlat") {
		return nil, fmt.Errorf("layer %s: source projection %q is not geographic", src.Name, src.Proj4)
	}
	if res <= 0 {
		return nil, fmt.Errorf("target resolution must be positive, got %g", res)
	}

	gt := src.Geotransform
	left := gt[0]
	top := gt[3]
	right := gt[0] + float64(src.XSize)*gt[1]
	bottom := gt[3] + float64(src.YSize)*gt[5]

	top = math.Min(top, MercLatMax)
	bottom = math.Max(bottom, -MercLatMax)
	if bottom >= top {
		return nil, fmt.Errorf("layer %s: no extent left inside the mercator domain", src.Name)
	}

	min := project.Point(orb.Point{left, bottom}, project.WGS84.ToMercator)
	max := project.Point(orb.Point{right, top}, project.WGS84.ToMercator)

	v := &WarpedView{
		src:        src,
		Width:      int(math.Ceil((max[0] - min[0]) / res)),
		Height:     int(math.Ceil((max[1] - min[1]) / res)),
		res:        res,
		resampling: rs,
		minLat:     minLat,
		// a full-globe source wraps across the antimeridian so the
		// seam column stays continuous
		wrapLon: math.Abs(float64(src.XSize)*gt[1]-360.0) < 1e-6,
	}
	v.Transform = [6]float64{min[0], res, 0, max[1], 0, -res}
	return v, nil
}

// Read resamples one window of the virtual raster. It returns the values
// row-major together with a parallel validity mask; pixels outside source
// coverage, equal to nodata, non-finite or below the minimum latitude are
// masked out rather than given a sentinel value.
func (v *WarpedView) Read(win Window) ([]float32, []bool) {
	vals := make([]float32, win.Width*win.Height)
	valid := make([]bool, win.Width*win.Height)

	gt := v.src.Geotransform
	for j := 0; j < win.Height; j++ {
		y := v.Transform[3] - (float64(win.Row+j)+0.5)*v.res
		for i := 0; i < win.Width; i++ {
			x := v.Transform[0] + (float64(win.Col+i)+0.5)*v.res
			ll := project.Point(orb.Point{x, y}, project.Mercator.ToWGS84)
			if ll[1] < v.minLat {
				continue // pole artifact strip
			}

			fc := (ll[0]-gt[0])/gt[1] - 0.5
			fr := (ll[1]-gt[3])/gt[5] - 0.5

			idx := j*win.Width + i
			switch v.resampling {
			case Nearest:
				vals[idx], valid[idx] = v.sampleNearest(fc, fr)
			default:
				vals[idx], valid[idx] = v.sampleBilinear(fc, fr)
			}
		}
	}
	return vals, valid
}

// wrapCol folds a column index into the grid for full-globe sources,
// otherwise reports out-of-range columns as unusable.
func (v *WarpedView) wrapCol(c int) (int, bool) {
	if c >= 0 && c < v.src.XSize {
		return c, true
	}
	if !v.wrapLon {
		return 0, false
	}
	c = c % v.src.XSize
	if c < 0 {
		c += v.src.XSize
	}
	return c, true
}

func (v *WarpedView) sampleNearest(fc, fr float64) (float32, bool) {
	c := int(math.Round(fc))
	r := int(math.Round(fr))
	if r < 0 || r >= v.src.YSize {
		return 0, false
	}
	c, ok := v.wrapCol(c)
	if !ok || !v.src.ValidAt(c, r) {
		return 0, false
	}
	return v.src.At(c, r), true
}

func (v *WarpedView) sampleBilinear(fc, fr float64) (float32, bool) {
	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	fx := fc - float64(c0)
	fy := fr - float64(r0)

	var acc, wsum float64
	for dj := 0; dj <= 1; dj++ {
		r := r0 + dj
		if r < 0 || r >= v.src.YSize {
			continue
		}
		wy := fy
		if dj == 0 {
			wy = 1 - fy
		}
		for di := 0; di <= 1; di++ {
			c, ok := v.wrapCol(c0 + di)
			if !ok || !v.src.ValidAt(c, r) {
				continue
			}
			wx := fx
			if di == 0 {
				wx = 1 - fx
			}
			acc += float64(v.src.At(c, r)) * wx * wy
			wsum += wx * wy
		}
	}
	if wsum <= 0 {
		return 0, false
	}
	return float32(acc / wsum), true
}
