package scene

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// revisitDays is the Landsat 8 repeat cycle, used to name the previous
// acquisition of the same path/row.
const revisitDays = 16

// Scene identifies a Landsat 8 acquisition, parsed from a pre-collection
// scene identifier such as LC80010632013361LGN00.
type Scene struct {
	ID       string
	Sensor   string
	Path     string
	Row      string
	Acquired time.Time
	Suffix   string
}

// Parse derives a Scene from the file name of a compressed scene package.
// Example: /data/LC80010632013361LGN00.tar.bz -> path 001, row 063,
// acquired 2013-12-27 (day of year 361).
func Parse(archivePath string) (Scene, error) {
	id := strings.SplitN(filepath.Base(archivePath), ".", 2)[0]
	if len(id) < 16 {
		return Scene{}, fmt.Errorf("scene identifier %q is too short", id)
	}

	year, err := strconv.Atoi(id[9:13])
	if err != nil {
		return Scene{}, fmt.Errorf("scene identifier %q has invalid year: %v", id, err)
	}
	doy, err := strconv.Atoi(id[13:16])
	if err != nil {
		return Scene{}, fmt.Errorf("scene identifier %q has invalid day of year: %v", id, err)
	}
	if doy < 1 || doy > 366 {
		return Scene{}, fmt.Errorf("scene identifier %q has day of year %d out of range", id, doy)
	}

	return Scene{
		ID:       id,
		Sensor:   id[:3],
		Path:     id[3:6],
		Row:      id[6:9],
		Acquired: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1),
		Suffix:   id[16:],
	}, nil
}

// DeliveryName is the canonical artifact name for this acquisition,
// e.g. LC8_001-063_20131227_LGN00.
func (s Scene) DeliveryName() string {
	return s.nameFor(s.Acquired)
}

// PriorDeliveryName is the canonical name of the previous acquisition of the
// same path/row, one revisit cycle earlier. Year boundaries are handled by
// date math rather than day-of-year subtraction.
func (s Scene) PriorDeliveryName() string {
	return s.nameFor(s.Acquired.AddDate(0, 0, -revisitDays))
}

func (s Scene) nameFor(acquired time.Time) string {
	return fmt.Sprintf("%s_%s-%s_%s_%s", s.Sensor, s.Path, s.Row, acquired.Format("20060102"), s.Suffix)
}

// archiveSuffixes are the package formats scenes are delivered in.
var archiveSuffixes = []string{".tar.bz", ".tar.bz2", ".tar.gz", ".tar"}

// IsArchive reports whether a file name looks like a compressed scene
// package.
func IsArchive(name string) bool {
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// GroupByPathRow buckets scene archives by path/row and orders each bucket
// by acquisition date. Change detection reads the previous acquisition's
// NDVI, so scenes of one path/row must be processed oldest first; different
// path/rows are independent and the groups can run in parallel.
func GroupByPathRow(archivePaths []string) ([][]string, error) {
	type item struct {
		path     string
		acquired time.Time
	}

	buckets := make(map[string][]item)
	var order []string
	for _, archivePath := range archivePaths {
		s, err := Parse(archivePath)
		if err != nil {
			return nil, err
		}
		key := s.Path + "/" + s.Row
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item{path: archivePath, acquired: s.Acquired})
	}

	groups := make([][]string, 0, len(order))
	for _, key := range order {
		items := buckets[key]
		sort.Slice(items, func(i, j int) bool {
			return items[i].acquired.Before(items[j].acquired)
		})
		paths := make([]string, len(items))
		for i, it := range items {
			paths[i] = it.path
		}
		groups = append(groups, paths)
	}
	return groups, nil
}

// PathSet bundles every file path derived from a scene and a base directory.
// It is computed once and passed around explicitly instead of being rebuilt
// piecemeal by each stage.
type PathSet struct {
	TempDir     string
	DeliveryDir string

	B4  string
	B5  string
	B6  string
	MTL string
	BQA string

	B4TOA string
	B5TOA string
	B6TOA string

	VRT string
	RGB string

	NDVI      string
	PriorNDVI string

	DeliveryBQA string
	Detection   string
	Preview     string
	Manifest    string
}

// TOASuffix is the filename suffix the calibration collaborator appends to
// reflectance outputs.
const TOASuffix = "_toa.TIF"

// Paths maps a scene and base directory to the full path bundle. Working
// files live under <base>/temp/<scene id>; durable products under
// <base>/processed/<path>/<row>.
func (s Scene) Paths(baseDir string) PathSet {
	temp := filepath.Join(baseDir, "temp", s.ID)
	delivery := filepath.Join(baseDir, "processed", s.Path, s.Row)
	name := s.DeliveryName()

	band := func(suffix string) string {
		return filepath.Join(temp, s.ID+suffix)
	}

	return PathSet{
		TempDir:     temp,
		DeliveryDir: delivery,

		B4:  band("_B4.TIF"),
		B5:  band("_B5.TIF"),
		B6:  band("_B6.TIF"),
		MTL: band("_MTL.txt"),
		BQA: band("_BQA.TIF"),

		B4TOA: band("_B4" + TOASuffix),
		B5TOA: band("_B5" + TOASuffix),
		B6TOA: band("_B6" + TOASuffix),

		VRT: band(".vrt"),
		RGB: filepath.Join(delivery, name+"_r6g5b4.tif"),

		NDVI:      filepath.Join(delivery, name+"_ndvi.tif"),
		PriorNDVI: filepath.Join(delivery, s.PriorDeliveryName()+"_ndvi.tif"),

		DeliveryBQA: filepath.Join(delivery, name+"_BQA.tif"),
		Detection:   filepath.Join(delivery, name+"_detection.geojson"),
		Preview:     filepath.Join(delivery, name+"_detection.png"),
		Manifest:    filepath.Join(delivery, "manifest.csv"),
	}
}
