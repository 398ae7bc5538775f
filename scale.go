package main

import (
	"image"
	"image/color"
	"math"
	"sort"
	"strings"
)

// Scale maps a block of raw values plus validity mask to colors
type Scale interface {
	Validate() error
	Resampling() Resampling
	Paint(vals []float32, valid []bool, w, h int) *image.NRGBA
}

// ScaleSpec is the result of matching a dataset to a color scale.
// Known is false when the dataset could not be recognized and the scale
// was derived from the data itself.
type ScaleSpec struct {
	Substance string
	Known     bool
	Scale     Scale
}

// ocean blue used as background for MSA and land-use renderings
var oceanColor = mustHex("#1f78b4")

// GLOBIO MSA greens, low to high
var msaColors = hexPalette(
	"#e0f3db", "#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b",
	"#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b",
)

// shared emission ramp, cold to hot
var rampColors = hexPalette(
	"#03008b", "#0039b3", "#0099cc", "#34d184", "#d4e840", "#f79433", "#c63a26",
)

// per-substance ramp boundaries; each has len(rampColors)+1 entries with an
// open-ended top bin
var substanceBounds = map[string][]float64{
	"PM2.5":  {0.0, 0.00025, 0.0025, 0.025, 0.50, 5.0, 20.0, 1e9},
	"CO":     {0.0, 0.00025, 0.0025, 0.025, 0.25, 1.0, 5.0, 12.0},
	"NH3":    {0.0, 0.00025, 0.0025, 0.025, 0.25, 0.50, 1.2, 1e9},
	"SO2":    {0.0, 0.00025, 0.0025, 0.025, 0.25, 0.50, 1.2, 1e9},
	"NOX":    {0.0, 0.00025, 0.0025, 0.025, 0.25, 0.50, 1.2, 1e9},
	"TOX_Hg": {0.0, 2e-07, 2e-06, 2e-05, 2e-04, 2e-03, 2e-02, 1e9},
}

// MSAScale is the fixed scale for MSA indicator grids on [0, 1].
// Values under minSignificance render as ocean.
func MSAScale(minSignificance float64) GradedScale {
	return GradedScale{
		Bounds:          []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.0001},
		Colors:          msaColors,
		Background:      oceanColor,
		DomainMin:       0.0,
		DomainMax:       1.0,
		ClipDomain:      true,
		MinSignificance: minSignificance,
	}
}

// RampScale is the emission ramp over the given boundaries. Non-positive
// values fold into a fully transparent background.
func RampScale(bounds []float64) GradedScale {
	return GradedScale{
		Bounds:          bounds,
		Colors:          rampColors,
		Background:      color.NRGBA{},
		MinSignificance: math.SmallestNonzeroFloat32,
	}
}

// LandUseScale colors GLOBIO land-use class codes. Snow, urban and water
// are special-cased; unknown codes fall back to ocean.
func LandUseScale() CategoryScale {
	return CategoryScale{
		Table: map[int]color.NRGBA{
			10: {0, 69, 41, 255},     // forest -> deep evergreen
			70: {0, 104, 55, 255},    // wetland -> wet dense veg
			90: {35, 132, 67, 255},   // shrubland -> woodland
			100: {65, 171, 93, 255},  // other natural -> woody savanna
			20: {120, 198, 121, 255}, // grassland -> open veg
			30: {173, 221, 142, 255}, // cropland -> sparse veg
			50: {254, 224, 139, 255}, // barren -> light desert
			80: {255, 255, 255, 255}, // snow / ice
			40: {90, 90, 90, 255},    // urban
			60: oceanColor,           // inland water
		},
		Fallback:   oceanColor,
		Background: oceanColor,
	}
}

// DetectScale matches a dataset name to a color scale. The substring
// matching follows the upstream file naming: emission grids carry the
// substance in the name, MSA and land-use grids carry their product tag.
// Unknown datasets return Known=false with a nil Scale; the caller derives
// ramp bounds from the data instead.
func DetectScale(name string, minSignificance float64) ScaleSpec {
	upper := strings.ToUpper(name)

	switch {
	case strings.Contains(upper, "_PM2.5_") || strings.Contains(upper, "_PM25_"):
		return ScaleSpec{"PM2.5", true, RampScale(substanceBounds["PM2.5"])}
	case strings.Contains(upper, "_CO_"):
		return ScaleSpec{"CO", true, RampScale(substanceBounds["CO"])}
	case strings.Contains(upper, "_NH3_"):
		return ScaleSpec{"NH3", true, RampScale(substanceBounds["NH3"])}
	case strings.Contains(upper, "_SO2_"):
		return ScaleSpec{"SO2", true, RampScale(substanceBounds["SO2"])}
	case strings.Contains(upper, "_NOX_"):
		return ScaleSpec{"NOX", true, RampScale(substanceBounds["NOX"])}
	case strings.Contains(upper, "_TOX_HG_") || strings.Contains(upper, "_TOXHG_"):
		return ScaleSpec{"TOX_Hg", true, RampScale(substanceBounds["TOX_Hg"])}
	case strings.Contains(upper, "MSA"):
		return ScaleSpec{"MSA", true, MSAScale(minSignificance)}
	case strings.Contains(upper, "_LU_") || strings.HasSuffix(upper, "_LU"):
		return ScaleSpec{"LU", true, LandUseScale()}
	}
	return ScaleSpec{Substance: "UNKNOWN"}
}

// fallback percentiles for unknown substances, one per ramp boundary
var fallbackPercentiles = []float64{0, 5, 25, 50, 75, 90, 99, 100}

// PercentileBounds derives ramp boundaries from a sample of valid positive
// values, for datasets with no fixed scale.
func PercentileBounds(sample []float32) []float64 {
	if len(sample) == 0 {
		return nil
	}
	sorted := make([]float64, len(sample))
	for i, v := range sample {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	bounds := make([]float64, len(fallbackPercentiles))
	for i, p := range fallbackPercentiles {
		bounds[i] = percentile(sorted, p)
	}
	return bounds
}

// percentile with linear interpolation over an already sorted slice
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SampleValues collects up to max valid positive values from a grid,
// stride-sampled so huge rasters stay cheap.
func SampleValues(d *Dataset, max int) []float32 {
	stride := len(d.Pix)/max + 1
	out := make([]float32, 0, max)
	for i := 0; i < len(d.Pix); i += stride {
		v := d.Pix[i]
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}
		if v == float32(d.NoData) || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}
