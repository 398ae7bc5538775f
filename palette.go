package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"
)

// GradedScale buckets continuous values into an ordered color ramp.
// Bounds are right-open intervals [Bounds[i], Bounds[i+1]) and a value on
// a boundary belongs to the higher bucket; values outside the bounds are
// clamped into the first or last populated color.
type GradedScale struct {
	Bounds          []float64
	Colors          []color.NRGBA
	Background      color.NRGBA
	DomainMin       float64
	DomainMax       float64
	ClipDomain      bool
	MinSignificance float64
}

func (s GradedScale) Validate() error {
	if len(s.Colors) == 0 {
		return fmt.Errorf("graded scale has no colors")
	}
	if len(s.Bounds) < len(s.Colors)+1 {
		return fmt.Errorf("graded scale needs at least %d bounds for %d colors, got %d",
			len(s.Colors)+1, len(s.Colors), len(s.Bounds))
	}
	for i := 1; i < len(s.Bounds); i++ {
		if s.Bounds[i] < s.Bounds[i-1] {
			return fmt.Errorf("graded scale bounds must be non-decreasing, %g after %g",
				s.Bounds[i], s.Bounds[i-1])
		}
	}
	return nil
}

// Resampling for a continuous index must not invent class edges
func (s GradedScale) Resampling() Resampling { return Bilinear }

// Paint classifies one block of values into colors. Invalid pixels and
// values below MinSignificance fold into the background color.
func (s GradedScale) Paint(vals []float32, valid []bool, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		v := float64(vals[i])
		c := s.Background
		if valid[i] && !math.IsNaN(v) && !math.IsInf(v, 0) {
			if s.ClipDomain {
				v = math.Max(s.DomainMin, math.Min(s.DomainMax, v))
			}
			if v >= s.MinSignificance {
				c = s.Colors[s.bucket(v)]
			}
		}
		img.SetNRGBA(i%w, i/w, c)
	}
	return img
}

func (s GradedScale) bucket(v float64) int {
	// index of the first bound strictly greater than v; the interval
	// below it holds v
	i := sort.Search(len(s.Bounds), func(i int) bool { return s.Bounds[i] > v }) - 1
	if i < 0 {
		i = 0
	}
	if i > len(s.Colors)-1 {
		i = len(s.Colors) - 1
	}
	return i
}

// CategoryScale paints discrete class codes from a fixed lookup table.
// Codes without an entry get the fallback color.
type CategoryScale struct {
	Table      map[int]color.NRGBA
	Fallback   color.NRGBA
	Background color.NRGBA
}

func (s CategoryScale) Validate() error {
	if len(s.Table) == 0 {
		return fmt.Errorf("category scale has an empty table")
	}
	return nil
}

// Resampling for class codes must keep them intact
func (s CategoryScale) Resampling() Resampling { return Nearest }

func (s CategoryScale) Paint(vals []float32, valid []bool, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		c := s.Background
		v := float64(vals[i])
		if valid[i] && !math.IsNaN(v) && !math.IsInf(v, 0) {
			if tc, ok := s.Table[int(math.Round(v))]; ok {
				c = tc
			} else {
				c = s.Fallback
			}
		}
		img.SetNRGBA(i%w, i/w, c)
	}
	return img
}

// hexColor parses #RRGGBB or #RRGGBBAA
func hexColor(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", s)
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q: %w", s, err)
	}
	c := color.NRGBA{A: 0xff}
	if len(s) == 8 {
		c.A = uint8(n)
		n >>= 8
	}
	c.B = uint8(n)
	c.G = uint8(n >> 8)
	c.R = uint8(n >> 16)
	return c, nil
}

func mustHex(s string) color.NRGBA {
	c, err := hexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func hexPalette(hh ...string) []color.NRGBA {
	cc := make([]color.NRGBA, len(hh))
	for i, h := range hh {
		cc[i] = mustHex(h)
	}
	return cc
}
