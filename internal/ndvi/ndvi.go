// Package ndvi computes the normalized difference vegetation index from
// calibrated Landsat 8 reflectance bands.
package ndvi

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/schollz/progressbar/v3"

	"github.com/greenwatch/landsat-monitor/internal/raster"
)

// BandSet names the input rasters for one scene. All four must share a grid.
type BandSet struct {
	Red  string // B4 reflectance
	NIR  string // B5 reflectance
	Gate string // B6 reflectance, validity gate only
	QA   string // BQA quality codes
}

// Compositor turns a BandSet into a single-band Float32 NDVI raster.
type Compositor struct {
	invalidQA map[uint16]bool
	minGate   float64
	quiet     bool
}

func NewCompositor(invalidQA []uint16, minGate float64, quiet bool) *Compositor {
	codes := make(map[uint16]bool, len(invalidQA))
	for _, code := range invalidQA {
		codes[code] = true
	}
	return &Compositor{invalidQA: codes, minGate: minGate, quiet: quiet}
}

// pixel applies the per-pixel masking policy: quality-flagged pixels and
// pixels with a gate reflectance below the minimum produce 0, as does a zero
// denominator (which also covers the 0/0 case).
func (c *Compositor) pixel(red, nir, gate, qa float32) float32 {
	if c.invalidQA[uint16(qa)] {
		return 0
	}
	if float64(gate) < c.minGate {
		return 0
	}
	den := nir + red
	if den == 0 {
		return 0
	}
	return (nir - red) / den
}

// Create computes the index and writes it to dst, inheriting geotransform and
// CRS from the red band. The rasters are processed one row at a time so a
// full Landsat scene never has to fit in memory.
func (c *Compositor) Create(bands BandSet, dst string) error {
	red, err := openBand(bands.Red)
	if err != nil {
		return err
	}
	defer red.Close()

	st := red.Structure()
	width, height := st.SizeX, st.SizeY
	if width <= 0 || height <= 0 {
		return &raster.InvalidRasterError{Path: bands.Red, Err: fmt.Errorf("raster has empty size %dx%d", width, height)}
	}

	nir, err := openSameGrid(bands.NIR, width, height)
	if err != nil {
		return err
	}
	defer nir.Close()

	gate, err := openSameGrid(bands.Gate, width, height)
	if err != nil {
		return err
	}
	defer gate.Close()

	qa, err := openSameGrid(bands.QA, width, height)
	if err != nil {
		return err
	}
	defer qa.Close()

	gt, err := red.GeoTransform()
	if err != nil {
		return fmt.Errorf("failed to read geotransform of %s: %w", bands.Red, err)
	}

	out, err := godal.Create(godal.GTiff, dst, 1, godal.Float32, width, height)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if err := out.SetGeoTransform(gt); err != nil {
		return fmt.Errorf("failed to set geotransform on %s: %w", dst, err)
	}
	if sr := red.SpatialRef(); sr != nil {
		if err := out.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("failed to set CRS on %s: %w", dst, err)
		}
	}

	redBand := red.Bands()[0]
	nirBand := nir.Bands()[0]
	gateBand := gate.Bands()[0]
	qaBand := qa.Bands()[0]
	outBand := out.Bands()[0]

	redRow := make([]float32, width)
	nirRow := make([]float32, width)
	gateRow := make([]float32, width)
	qaRow := make([]float32, width)
	outRow := make([]float32, width)

	var bar *progressbar.ProgressBar
	if !c.quiet {
		bar = progressbar.Default(int64(height), "Computing NDVI")
	}

	for y := 0; y < height; y++ {
		if err := redBand.Read(0, y, redRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, bands.Red, err)
		}
		if err := nirBand.Read(0, y, nirRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, bands.NIR, err)
		}
		if err := gateBand.Read(0, y, gateRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, bands.Gate, err)
		}
		if err := qaBand.Read(0, y, qaRow, width, 1); err != nil {
			return fmt.Errorf("failed to read row %d of %s: %w", y, bands.QA, err)
		}

		for x := 0; x < width; x++ {
			outRow[x] = c.pixel(redRow[x], nirRow[x], gateRow[x], qaRow[x])
		}

		if err := outBand.Write(0, y, outRow, width, 1); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", y, dst, err)
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	return nil
}

func openBand(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, &raster.InvalidRasterError{Path: path, Err: err}
	}
	return ds, nil
}

func openSameGrid(path string, wantX, wantY int) (*godal.Dataset, error) {
	ds, err := openBand(path)
	if err != nil {
		return nil, err
	}
	st := ds.Structure()
	if st.SizeX != wantX || st.SizeY != wantY {
		ds.Close()
		return nil, &raster.GridMismatchError{Path: path, WantX: wantX, WantY: wantY, GotX: st.SizeX, GotY: st.SizeY}
	}
	return ds, nil
}
