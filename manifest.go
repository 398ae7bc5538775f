package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// TileEntry describes one produced tile for the manifest
type TileEntry struct {
	Filename string     `json:"filename"`
	URL      string     `json:"url"`
	Bbox     [4]float64 `json:"bbox"` // left, bottom, right, top
	CRS      string     `json:"crs"`
}

// Manifest is the persistent index of all tiles produced into an output
// directory, keyed by filename. It carries no locking beyond a mutex for
// in-process upserts; concurrent runs against one directory are out of
// contract.
type Manifest struct {
	path    string
	entries map[string]TileEntry
	mu      sync.Mutex
}

func NewManifest(path string) *Manifest {
	return &Manifest{path: path, entries: make(map[string]TileEntry)}
}

// Load reads an existing manifest. A missing file is a fresh start; a
// malformed one is logged and ignored, since the tile images on disk are
// the real resume state.
func (m *Manifest) Load() {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Warnf("failed to read existing manifest %s: %s", m.path, err)
		return
	}
	var list []TileEntry
	if err := json.Unmarshal(data, &list); err != nil {
		log.Warnf("failed to parse existing manifest %s: %s", m.path, err)
		return
	}
	for _, e := range list {
		if e.Filename == "" {
			continue
		}
		m.entries[e.Filename] = e
	}
	log.Infof("loaded existing manifest with %d entries", len(m.entries))
}

// Upsert records or replaces the entry for its filename
func (m *Manifest) Upsert(e TileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Filename] = e
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Persist rewrites the whole manifest sorted by filename. The document is
// replaced via temp file + rename so readers never see a torn write.
func (m *Manifest) Persist() error {
	m.mu.Lock()
	list := make([]TileEntry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, e)
	}
	m.mu.Unlock()

	// stable order for diffs across runs
	sort.Slice(list, func(i, j int) bool { return list[i].Filename < list[j].Filename })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest in %s: %w", dir, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename manifest into %s: %w", m.path, err)
	}
	return nil
}
