// Package change compares the NDVI of a scene against the previous
// acquisition of the same path/row and extracts the areas of vegetation loss.
package change

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/airbusgeo/godal"

	"github.com/greenwatch/landsat-monitor/internal/raster"
	"github.com/greenwatch/landsat-monitor/internal/regions"
)

// Result is the outcome of one change-detection run. A missing prior scene
// is an expected condition, reported through Skipped rather than an error.
type Result struct {
	Skipped  bool
	Reason   string
	MaskPath string
	Regions  *regions.Set
}

// Detector aligns two NDVI rasters, differences them, thresholds the delta
// into a binary mask and hands the mask to the region extractor.
type Detector struct {
	// Threshold flags a pixel when current minus prior drops below it.
	Threshold float64
	// MinRegionPixels is the sieve threshold owned by this stage.
	MinRegionPixels int
	// TargetEPSG is the CRS of the vector product.
	TargetEPSG int

	Extractor regions.Extractor

	// Raster operations, swappable in tests like Extractor. Nil fields
	// get the godal-backed implementations.
	extentOf func(path string) (raster.Extent, error)
	warp     func(src string, ext raster.Extent, dst string) error
	subtract func(currentPath, priorPath, dst string) error
	mask     func(deltaPath string, threshold float64, dst string) error
}

func (d *Detector) init() {
	if d.extentOf == nil {
		d.extentOf = raster.ExtentOf
	}
	if d.warp == nil {
		d.warp = warpToExtent
	}
	if d.subtract == nil {
		d.subtract = subtract
	}
	if d.mask == nil {
		d.mask = maskBelow
	}
}

// Detect runs the comparison. workDir receives every intermediate raster;
// the final GeoJSON is written to detectionPath. The first scene of a
// path/row has no history, so an absent or unreadable NDVI input skips the
// run instead of failing it.
func (d *Detector) Detect(ctx context.Context, currentPath, priorPath, workDir, detectionPath string) (*Result, error) {
	d.init()

	for _, in := range []string{currentPath, priorPath} {
		if _, err := os.Stat(in); err != nil {
			return &Result{Skipped: true, Reason: fmt.Sprintf("NDVI image %s is not available", in)}, nil
		}
	}

	currentExt, err := d.extentOf(currentPath)
	if err != nil {
		return &Result{Skipped: true, Reason: fmt.Sprintf("NDVI image %s is not readable: %v", currentPath, err)}, nil
	}
	priorExt, err := d.extentOf(priorPath)
	if err != nil {
		return &Result{Skipped: true, Reason: fmt.Sprintf("NDVI image %s is not readable: %v", priorPath, err)}, nil
	}

	// Resampling is only needed when the two acquisitions do not already
	// share an exact extent.
	a, b := currentPath, priorPath
	if !currentExt.Equal(priorExt) {
		common := raster.Intersect(currentExt, priorExt)
		if !common.Valid() {
			return nil, &raster.DisjointExtentError{A: currentExt, B: priorExt}
		}

		a = workPath(workDir, currentPath, "_warp.tif")
		b = workPath(workDir, priorPath, "_warp.tif")
		if err := d.warp(currentPath, common, a); err != nil {
			return nil, err
		}
		if err := d.warp(priorPath, common, b); err != nil {
			return nil, err
		}
	}

	deltaPath := filepath.Join(workDir, "changes.tif")
	if err := d.subtract(a, b, deltaPath); err != nil {
		return nil, err
	}

	maskPath := filepath.Join(workDir, "changes_mask.tif")
	if err := d.mask(deltaPath, d.Threshold, maskPath); err != nil {
		return nil, err
	}

	geojsonPath, err := d.Extractor.Extract(ctx, maskPath, regions.Params{
		MinRegionPixels: d.MinRegionPixels,
		TargetEPSG:      d.TargetEPSG,
		SievePath:       filepath.Join(workDir, "sieve.tif"),
		ShapefilePath:   filepath.Join(workDir, "detection.shp"),
		GeoJSONPath:     detectionPath,
	})
	if err != nil {
		return nil, err
	}

	set, err := regions.Load(geojsonPath, regions.ChangeClass)
	if err != nil {
		return nil, err
	}

	return &Result{MaskPath: maskPath, Regions: set}, nil
}

func workPath(workDir, src, suffix string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return filepath.Join(workDir, base[:len(base)-len(ext)]+suffix)
}

// warpToExtent resamples src onto the given extent, keeping resolution and
// CRS.
func warpToExtent(src string, ext raster.Extent, dst string) error {
	ds, err := godal.Open(src)
	if err != nil {
		return &raster.InvalidRasterError{Path: src, Err: err}
	}
	defer ds.Close()

	warped, err := ds.Warp(dst, []string{
		"-te",
		strconv.FormatFloat(ext.MinX, 'f', -1, 64),
		strconv.FormatFloat(ext.MinY, 'f', -1, 64),
		strconv.FormatFloat(ext.MaxX, 'f', -1, 64),
		strconv.FormatFloat(ext.MaxY, 'f', -1, 64),
	})
	if err != nil {
		return fmt.Errorf("failed to warp %s onto %s: %w", src, ext, err)
	}
	return warped.Close()
}

// subtract writes current minus prior as a Float32 raster, streamed per row.
func subtract(currentPath, priorPath, dst string) error {
	current, err := godal.Open(currentPath)
	if err != nil {
		return &raster.InvalidRasterError{Path: currentPath, Err: err}
	}
	defer current.Close()

	prior, err := godal.Open(priorPath)
	if err != nil {
		return &raster.InvalidRasterError{Path: priorPath, Err: err}
	}
	defer prior.Close()

	st := current.Structure()
	width, height := st.SizeX, st.SizeY
	pst := prior.Structure()
	if pst.SizeX != width || pst.SizeY != height {
		return &raster.GridMismatchError{Path: priorPath, WantX: width, WantY: height, GotX: pst.SizeX, GotY: pst.SizeY}
	}

	out, err := createLike(current, dst, godal.Float32)
	if err != nil {
		return err
	}
	defer out.Close()

	currentBand := current.Bands()[0]
	priorBand := prior.Bands()[0]
	outBand := out.Bands()[0]

	currentRow := make([]float32, width)
	priorRow := make([]float32, width)
	deltaRow := make([]float32, width)

	for y := 0; y < height; y++ {
		if err := currentBand.Read(0, y, currentRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, currentPath, err)
		}
		if err := priorBand.Read(0, y, priorRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, priorPath, err)
		}
		for x := 0; x < width; x++ {
			deltaRow[x] = currentRow[x] - priorRow[x]
		}
		if err := outBand.Write(0, y, deltaRow, width, 1); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", y, dst, err)
		}
	}
	return nil
}

// maskBelow thresholds the delta raster into a Byte mask: 1 where the delta
// is below the threshold, 0 elsewhere. Increases are never flagged.
func maskBelow(deltaPath string, threshold float64, dst string) error {
	delta, err := godal.Open(deltaPath)
	if err != nil {
		return &raster.InvalidRasterError{Path: deltaPath, Err: err}
	}
	defer delta.Close()

	st := delta.Structure()
	width, height := st.SizeX, st.SizeY

	out, err := createLike(delta, dst, godal.Byte)
	if err != nil {
		return err
	}
	defer out.Close()

	deltaBand := delta.Bands()[0]
	outBand := out.Bands()[0]

	deltaRow := make([]float32, width)
	maskRow := make([]uint8, width)

	for y := 0; y < height; y++ {
		if err := deltaBand.Read(0, y, deltaRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, deltaPath, err)
		}
		thresholdRow(deltaRow, threshold, maskRow)
		if err := outBand.Write(0, y, maskRow, width, 1); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", y, dst, err)
		}
	}
	return nil
}

func thresholdRow(delta []float32, threshold float64, mask []uint8) {
	for i, v := range delta {
		if float64(v) < threshold {
			mask[i] = 1
		} else {
			mask[i] = 0
		}
	}
}

// createLike creates a single-band dataset with src's grid, geotransform and
// CRS.
func createLike(src *godal.Dataset, dst string, dtype godal.DataType) (*godal.Dataset, error) {
	st := src.Structure()
	out, err := godal.Create(godal.GTiff, dst, 1, dtype, st.SizeX, st.SizeY)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if gt, err := src.GeoTransform(); err == nil {
		if err := out.SetGeoTransform(gt); err != nil {
			out.Close()
			return nil, fmt.Errorf("failed to set geotransform on %s: %w", dst, err)
		}
	}
	if sr := src.SpatialRef(); sr != nil {
		if err := out.SetSpatialRef(sr); err != nil {
			out.Close()
			return nil, fmt.Errorf("failed to set CRS on %s: %w", dst, err)
		}
	}
	return out, nil
}
