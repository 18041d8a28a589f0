package raster

import "fmt"

// InvalidRasterError marks a raster file that is missing, unreadable or has
// an empty grid.
type InvalidRasterError struct {
	Path string
	Err  error
}

func (e *InvalidRasterError) Error() string {
	return fmt.Sprintf("invalid raster %s: %v", e.Path, e.Err)
}

func (e *InvalidRasterError) Unwrap() error { return e.Err }

// GridMismatchError marks two rasters that were expected to share a grid but
// have different dimensions.
type GridMismatchError struct {
	Path         string
	WantX, WantY int
	GotX, GotY   int
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("grid mismatch for %s: expected %dx%d, got %dx%d",
		e.Path, e.WantX, e.WantY, e.GotX, e.GotY)
}

// DisjointExtentError marks two rasters that share no geographic overlap.
type DisjointExtentError struct {
	A, B Extent
}

func (e *DisjointExtentError) Error() string {
	return fmt.Sprintf("extents %s and %s do not overlap", e.A, e.B)
}
