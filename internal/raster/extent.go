package raster

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

// Extent is an axis-aligned bounding box in the units of the raster's CRS.
type Extent struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Valid reports whether the extent covers a non-empty area. An intersection
// of two non-overlapping extents comes out degenerate and fails this check.
func (e Extent) Valid() bool {
	return e.MinX < e.MaxX && e.MinY < e.MaxY
}

// Equal requires all four bounds to match exactly. Change detection relies on
// exact equality to decide whether two rasters already share a grid.
func (e Extent) Equal(other Extent) bool {
	return e == other
}

func (e Extent) String() string {
	return fmt.Sprintf("[%f %f %f %f]", e.MinX, e.MinY, e.MaxX, e.MaxY)
}

// extentFromGeoTransform derives the bounding box from a GDAL geotransform
// (originX, pixelW, rotX, originY, rotY, pixelH) with pixelH negative for
// north-up images.
func extentFromGeoTransform(gt [6]float64, width, height int) Extent {
	w := float64(width)
	h := float64(height)
	return Extent{
		MinX: gt[0],
		MinY: gt[3] + w*gt[4] + h*gt[5],
		MaxX: gt[0] + w*gt[1] + h*gt[2],
		MaxY: gt[3],
	}
}

// ExtentOf returns the bounding box of the raster at path.
func ExtentOf(path string) (Extent, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return Extent{}, &InvalidRasterError{Path: path, Err: err}
	}
	defer ds.Close()

	st := ds.Structure()
	if st.SizeX <= 0 || st.SizeY <= 0 {
		return Extent{}, &InvalidRasterError{Path: path, Err: fmt.Errorf("raster has empty size %dx%d", st.SizeX, st.SizeY)}
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return Extent{}, &InvalidRasterError{Path: path, Err: err}
	}

	return extentFromGeoTransform(gt, st.SizeX, st.SizeY), nil
}

// Intersect returns the overlap of two extents. No overlap check is done
// here: when a and b are disjoint the result is degenerate and Valid reports
// false.
func Intersect(a, b Extent) Extent {
	return Extent{
		MinX: math.Max(a.MinX, b.MinX),
		MinY: math.Max(a.MinY, b.MinY),
		MaxX: math.Min(a.MaxX, b.MaxX),
		MaxY: math.Min(a.MaxY, b.MaxY),
	}
}
