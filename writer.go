package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// saveTilePNG encodes img losslessly at path. The file appears atomically:
// it is written under a temp name in the same directory and renamed into
// place, so a crashed run never leaves a half-written tile behind.
func saveTilePNG(img image.Image, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create tile directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tile-*.png")
	if err != nil {
		return fmt.Errorf("create temp tile in %s: %w", dir, err)
	}

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode tile %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp tile for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename tile into %s: %w", path, err)
	}
	return nil
}
