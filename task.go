package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// ManifestName is the manifest document inside the output directory
const ManifestName = "tile_manifest.json"

// DstCRS is the destination projection of every produced tile
const DstCRS = "EPSG:3857"

// canonical proj4 string the pipeline expects sources to carry
const geographicProj4 = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"

func InitTask() {
	start := time.Now()

	task, err := NewTask(TaskOptions{
		Dataset:         conf.Input.Dataset,
		OutDir:          conf.Output.Directory,
		BaseURL:         conf.Output.BaseURL,
		TileSize:        conf.Tile.Size,
		Resolution:      conf.Tile.Resolution,
		ScaleName:       conf.Scale.Name,
		MinSignificance: conf.Scale.MinSignificance,
		MinLatitude:     conf.Scale.MinLatitude,
		Workers:         conf.Task.Workers,
	})
	if err != nil {
		log.Fatalf("task setup failed: %s", err)
	}

	// flush what we have if the process is told to stop mid-run
	SafeExitInst.Register(task.AbortFun)
	SafeExitInst.Register(func() {
		if err := task.Manifest.Persist(); err != nil {
			log.Errorf("persist manifest on exit: %s", err)
		} else {
			log.Infof("manifest persisted on exit with %d entries", task.Manifest.Len())
		}
	})

	if err := task.Run(); err != nil {
		log.Fatalf("task failed: %s", err)
	}

	secs := time.Since(start).Seconds()
	log.Printf("\n%.3fs finished...", secs)
}

// TaskOptions is everything one pipeline run needs; no state outlives it
type TaskOptions struct {
	Dataset         string
	OutDir          string
	BaseURL         string
	TileSize        int
	Resolution      float64
	ScaleName       string
	MinSignificance float64
	MinLatitude     float64
	Workers         int
}

// Task drives one tile-generation run over a single dataset
type Task struct {
	ID       string
	Dataset  *Dataset
	View     *WarpedView
	Grid     TileGrid
	Scale    Scale
	Manifest *Manifest
	OutDir   string
	BaseURL  string
	Total    int64
	Bar      *pb.ProgressBar

	// written filenames in write order, for the run summary
	Written []string

	workerCount int
	produced    int64
	skipped     int64
	tileWG      sync.WaitGroup
	workers     chan struct{}
	abort       chan struct{}
	abortOnce   sync.Once
	errOnce     sync.Once
	firstErr    error
	writtenMu   sync.Mutex
}

// NewTask resolves paths, loads the dataset and any prior manifest, picks
// the color scale and establishes the warped view. Every failure here is a
// configuration error: nothing has touched the output tiles yet.
func NewTask(opt TaskOptions) (*Task, error) {
	if opt.TileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", opt.TileSize)
	}

	ds, err := OpenDataset(opt.Dataset)
	if err != nil {
		return nil, err
	}

	scale, err := resolveScale(ds, opt.ScaleName, opt.MinSignificance)
	if err != nil {
		return nil, err
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	view, err := NewWarpedView(ds, opt.Resolution, scale.Resampling(), opt.MinLatitude)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opt.OutDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", opt.OutDir, err)
	}

	id, _ := shortid.Generate()
	task := &Task{
		ID:      id,
		Dataset: ds,
		View:    view,
		Grid: TileGrid{
			Width:     view.Width,
			Height:    view.Height,
			Edge:      opt.TileSize,
			Transform: view.Transform,
		},
		Scale:    scale,
		Manifest: NewManifest(filepath.Join(opt.OutDir, ManifestName)),
		OutDir:   opt.OutDir,
		BaseURL:  opt.BaseURL,
	}
	task.Total = int64(task.Grid.TilesX()) * int64(task.Grid.TilesY())

	task.workerCount = opt.Workers
	if task.workerCount < 1 {
		task.workerCount = 1
	}
	task.workers = make(chan struct{}, task.workerCount)
	task.abort = make(chan struct{})

	task.Manifest.Load()
	return task, nil
}

// resolveScale picks the scale by explicit config name, or detects it from
// the dataset name, deriving percentile bounds when nothing matches.
func resolveScale(ds *Dataset, name string, minSignificance float64) (Scale, error) {
	var spec ScaleSpec
	switch strings.ToLower(name) {
	case "", "auto":
		spec = DetectScale(ds.Stem(), minSignificance)
	case "msa":
		spec = ScaleSpec{"MSA", true, MSAScale(minSignificance)}
	case "landuse", "lu":
		spec = ScaleSpec{"LU", true, LandUseScale()}
	default:
		bounds, ok := substanceBounds[name]
		if !ok {
			return nil, fmt.Errorf("unknown scale %q", name)
		}
		spec = ScaleSpec{name, true, RampScale(bounds)}
	}

	if spec.Scale != nil {
		log.Infof("detected substance: %s", spec.Substance)
		return spec.Scale, nil
	}

	log.Warnf("unknown substance for %s; deriving percentile bounds from the data", ds.Stem())
	sample := SampleValues(ds, 100000)
	if len(sample) == 0 {
		return nil, fmt.Errorf("dataset %s has no valid positive values to derive a scale from", ds.Stem())
	}
	bounds := PercentileBounds(sample)
	log.Infof("derived bounds: %v", bounds)
	return RampScale(bounds), nil
}

// AbortFun stops dispatching further tiles
func (task *Task) AbortFun() {
	task.abortOnce.Do(func() { close(task.abort) })
}

func (task *Task) aborted() bool {
	select {
	case <-task.abort:
		return true
	default:
		return false
	}
}

func (task *Task) fail(err error) {
	task.errOnce.Do(func() { task.firstErr = err })
	task.AbortFun()
}

// TileName derives the deterministic tile filename for (row, col)
func (task *Task) TileName(row, col int) string {
	return fmt.Sprintf("%s_3857_res%dm_tile_y%04d_x%04d.png",
		task.Dataset.Stem(), int(task.Grid.Transform[1]), row, col)
}

// TileURL joins the base URL with the tile filename; without a base URL
// the manifest carries the bare filename.
func (task *Task) TileURL(name string) string {
	if task.BaseURL == "" {
		return name
	}
	return strings.TrimRight(task.BaseURL, "/") + "/" + name
}

// logEstimate reports grid dimensions and a ballpark of raw output size.
// Informational only, it never gates execution.
func (task *Task) logEstimate() {
	if task.Dataset.Proj4 != geographicProj4 {
		log.Warnf("source projection is %q, expected %q", task.Dataset.Proj4, geographicProj4)
	}

	totalPixels := int64(task.View.Width) * int64(task.View.Height)
	rawGB := float64(totalPixels) * 3 / (1 << 30)

	log.Infof("warped grid : %d x %d px at %g m/px", task.View.Width, task.View.Height, task.Grid.Transform[1])
	log.Infof("tiles x * y : %d * %d = %d", task.Grid.TilesX(), task.Grid.TilesY(), task.Total)
	log.Infof("approx raw RGB data: %.2f GB (PNG compresses well below this)", rawGB)
	if rawGB < 0.001 {
		log.Warnf("estimated output is unexpectedly small; check resolution and source extent")
	}
}

// Run walks the tile grid row-major. Every tile's descriptor is upserted
// into the manifest, even skipped ones, so bounding boxes stay recorded
// across resumed runs. A tile whose PNG already exists on disk is skipped
// without touching the source; the first produce error aborts the run.
func (task *Task) Run() error {
	task.logEstimate()

	task.Bar = pb.New64(task.Total).Prefix(fmt.Sprintf("Task %s : ", task.ID)).Postfix("\n")
	task.Bar.SetRefreshRate(time.Second)
	task.Bar.Start()

	err := task.Grid.Each(func(row, col int, win Window) error {
		if task.aborted() {
			return task.firstErr
		}

		name := task.TileName(row, col)
		bbox := task.Grid.Bounds(win)
		task.Manifest.Upsert(TileEntry{
			Filename: name,
			URL:      task.TileURL(name),
			Bbox:     [4]float64{bbox.Min[0], bbox.Min[1], bbox.Max[0], bbox.Max[1]},
			CRS:      DstCRS,
		})

		path := filepath.Join(task.OutDir, name)
		if _, err := os.Stat(path); err == nil {
			// already produced by an earlier run
			atomic.AddInt64(&task.skipped, 1)
			task.Bar.Increment()
			return nil
		}

		if task.workerCount <= 1 {
			if err := task.produceTile(win, name, path); err != nil {
				task.fail(err)
				return err
			}
			return nil
		}

		select {
		case task.workers <- struct{}{}:
			task.tileWG.Add(1)
			go func() {
				defer func() {
					task.tileWG.Done()
					<-task.workers
				}()
				if err := task.produceTile(win, name, path); err != nil {
					task.fail(err)
				}
			}()
		case <-task.abort:
		}
		return nil
	})

	task.tileWG.Wait()
	task.Bar.FinishPrint(fmt.Sprintf("Task %s finished ~", task.ID))

	if task.firstErr != nil {
		return task.firstErr
	}
	if err != nil {
		return err
	}

	if err := task.Manifest.Persist(); err != nil {
		return err
	}

	log.Infof("tiles total %d, produced %d, skipped %d, manifest entries %d",
		task.Total, atomic.LoadInt64(&task.produced), atomic.LoadInt64(&task.skipped), task.Manifest.Len())
	return nil
}

// produceTile reads, classifies and writes one tile
func (task *Task) produceTile(win Window, name, path string) error {
	start := time.Now()

	vals, valid := task.View.Read(win)
	img := task.Scale.Paint(vals, valid, win.Width, win.Height)
	if err := saveTilePNG(img, path); err != nil {
		return err
	}

	atomic.AddInt64(&task.produced, 1)
	task.writtenMu.Lock()
	task.Written = append(task.Written, name)
	task.writtenMu.Unlock()
	task.Bar.Increment()

	log.Debugf("tile %s (%dx%d px), %dms ...", name, win.Width, win.Height, time.Since(start).Milliseconds())
	return nil
}
