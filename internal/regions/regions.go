// Package regions reduces a binary change mask into vector polygons using
// the GDAL vector toolchain and reads the result back as a typed set.
package regions

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/greenwatch/landsat-monitor/internal/tools"
)

// classField is the integer attribute gdal_polygonize.py writes for each
// polygon's raster value.
const classField = "DN"

// ChangeClass marks a detected-change pixel in the mask.
const ChangeClass = 1

// Params control one extraction run. All intermediate paths are owned by the
// caller so they land in the scene's working directory.
type Params struct {
	MinRegionPixels int
	TargetEPSG      int
	SievePath       string
	ShapefilePath   string
	GeoJSONPath     string
}

// Extractor converts a binary change mask into a vector product, returning
// the path of the written GeoJSON file.
type Extractor interface {
	Extract(ctx context.Context, maskPath string, p Params) (string, error)
}

// GDALTools drives gdal_sieve.py, gdal_polygonize.py and ogr2ogr as three
// sequential external processes.
type GDALTools struct {
	Sieve      string
	Polygonize string
	OGR2OGR    string
}

func (g *GDALTools) Extract(ctx context.Context, maskPath string, p Params) (string, error) {
	if err := tools.Run(ctx, g.Sieve, "-st", strconv.Itoa(p.MinRegionPixels), maskPath, p.SievePath); err != nil {
		return "", fmt.Errorf("sieve failed: %w", err)
	}

	if err := tools.Run(ctx, g.Polygonize, p.SievePath, "-f", "ESRI Shapefile", p.ShapefilePath); err != nil {
		return "", fmt.Errorf("polygonize failed: %w", err)
	}

	// Only class-1 polygons survive the conversion, reprojected into the
	// target CRS.
	if err := tools.Run(ctx, g.OGR2OGR,
		"-where", fmt.Sprintf("%q=%d", classField, ChangeClass),
		"-t_srs", fmt.Sprintf("EPSG:%d", p.TargetEPSG),
		"-f", "GeoJSON", p.GeoJSONPath, p.ShapefilePath); err != nil {
		return "", fmt.Errorf("geojson conversion failed: %w", err)
	}

	return p.GeoJSONPath, nil
}

// Set is the final vector product: the change polygons of one scene pair.
type Set struct {
	Features *geojson.FeatureCollection
}

func (s *Set) Count() int {
	if s == nil || s.Features == nil {
		return 0
	}
	return len(s.Features.Features)
}

// Load parses a GeoJSON file and keeps only features of the given class.
// ogr2ogr already filters on write; filtering again here keeps the contract
// independent of how the file was produced.
func Load(path string, class int) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	filtered := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if featureClass(f) == class {
			filtered.Append(f)
		}
	}
	return &Set{Features: filtered}, nil
}

func featureClass(f *geojson.Feature) int {
	switch v := f.Properties[classField].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return -1
	}
}
