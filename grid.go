package main

import (
	"github.com/paulmach/orb"
)

// Window is a pixel-space rectangle of the virtual destination raster
type Window struct {
	Col    int
	Row    int
	Width  int
	Height int
}

// TileGrid partitions a virtual raster into fixed-edge tiles
type TileGrid struct {
	Width     int
	Height    int
	Edge      int
	Transform [6]float64
}

func (g TileGrid) TilesX() int {
	return (g.Width + g.Edge - 1) / g.Edge
}

func (g TileGrid) TilesY() int {
	return (g.Height + g.Edge - 1) / g.Edge
}

// Window computes the pixel rect of tile (row, col). Edge tiles are
// clipped to the remaining extent, never padded. ok is false for
// degenerate windows, which are skipped by the driver.
func (g TileGrid) Window(row, col int) (Window, bool) {
	w := Window{
		Col:    col * g.Edge,
		Row:    row * g.Edge,
		Width:  min(g.Edge, g.Width-col*g.Edge),
		Height: min(g.Edge, g.Height-row*g.Edge),
	}
	if w.Width <= 0 || w.Height <= 0 {
		return w, false
	}
	return w, true
}

// Bounds applies the affine transform to the window corners, giving its
// bounding box in destination-projection units (left, bottom, right, top).
func (g TileGrid) Bounds(w Window) orb.Bound {
	left := g.Transform[0] + float64(w.Col)*g.Transform[1]
	top := g.Transform[3] + float64(w.Row)*g.Transform[5]
	right := left + float64(w.Width)*g.Transform[1]
	bottom := top + float64(w.Height)*g.Transform[5]
	return orb.Bound{Min: orb.Point{left, bottom}, Max: orb.Point{right, top}}
}

// Each enumerates tiles row-major: all columns of row 0, then row 1, and
// so on. The enumeration order is part of the pipeline contract.
func (g TileGrid) Each(fn func(row, col int, w Window) error) error {
	for ty := 0; ty < g.TilesY(); ty++ {
		for tx := 0; tx < g.TilesX(); tx++ {
			w, ok := g.Window(ty, tx)
			if !ok {
				continue
			}
			if err := fn(ty, tx, w); err != nil {
				return err
			}
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
