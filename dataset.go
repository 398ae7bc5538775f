package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
)

// Layer is the JSON sidecar describing a single-band georeferenced grid
type Layer struct {
	Name         string    `json:"name"`
	XSize        int       `json:"x_size"`
	YSize        int       `json:"y_size"`
	Geotransform []float64 `json:"geotransform"`
	NoData       float64   `json:"no_data"`
	Proj4        string    `json:"proj4"`
}

// Dataset is a fully loaded source raster: layer metadata plus its float32 grid
type Dataset struct {
	Layer
	Pix  []float32
	stem string
}

// OpenDataset reads <stem>.json metadata next to a raw float32 grid.
// The grid file is little-endian row-major, snappy-compressed when the
// extension is .snp, raw otherwise.
func OpenDataset(path string) (*Dataset, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	meta, err := os.ReadFile(stem + ".json")
	if err != nil {
		return nil, fmt.Errorf("read layer metadata for %s: %w", path, err)
	}

	d := &Dataset{stem: filepath.Base(stem)}
	if err := json.Unmarshal(meta, &d.Layer); err != nil {
		return nil, fmt.Errorf("parse layer metadata for %s: %w", path, err)
	}
	if d.XSize <= 0 || d.YSize <= 0 {
		return nil, fmt.Errorf("layer %s: bad grid size %dx%d", d.Name, d.XSize, d.YSize)
	}
	if len(d.Geotransform) != 6 {
		return nil, fmt.Errorf("layer %s: geotransform must have 6 terms, got %d", d.Name, len(d.Geotransform))
	}
	if d.Geotransform[2] != 0 || d.Geotransform[4] != 0 {
		return nil, fmt.Errorf("layer %s: rotated geotransforms are not supported", d.Name)
	}
	if d.Geotransform[1] <= 0 || d.Geotransform[5] >= 0 {
		return nil, fmt.Errorf("layer %s: grid must be west-east, north-south oriented", d.Name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid %s: %w", path, err)
	}
	if ext == ".snp" {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("decompress grid %s: %w", path, err)
		}
	}
	want := d.XSize * d.YSize * 4
	if len(data) != want {
		return nil, fmt.Errorf("grid %s: have %d bytes, want %d", path, len(data), want)
	}

	d.Pix = make([]float32, d.XSize*d.YSize)
	for i := range d.Pix {
		d.Pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return d, nil
}

// Stem is the dataset filename without directory and extension,
// used for tile naming and scale detection.
func (d *Dataset) Stem() string {
	return d.stem
}

// At returns the raw value at (col, row) without validity checks.
func (d *Dataset) At(col, row int) float32 {
	return d.Pix[row*d.XSize+col]
}

// ValidAt reports whether (col, row) holds a usable measurement.
func (d *Dataset) ValidAt(col, row int) bool {
	v := d.At(col, row)
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) && v != float32(d.NoData)
}
