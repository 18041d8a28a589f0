// Package preview renders quicklook PNGs of change masks.
package preview

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/fogleman/gg"
)

// RenderMask draws the binary change mask as a PNG: dark background, red
// change pixels. Meant for a quick visual check of a detection run, not for
// analysis.
func RenderMask(maskPath, dst string) error {
	ds, err := godal.Open(maskPath)
	if err != nil {
		return fmt.Errorf("failed to open mask %s: %v", maskPath, err)
	}
	defer ds.Close()

	width := ds.Structure().SizeX
	height := ds.Structure().SizeY

	data := make([]float64, width*height)
	band := ds.Bands()[0]
	if err := band.Read(0, 0, data, width, height); err != nil {
		return fmt.Errorf("failed to read mask data: %v", err)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.12, 0.12, 0.12)
	dc.Clear()
	dc.SetRGB(1, 0, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if data[y*width+x] == 1 {
				dc.SetPixel(x, y)
			}
		}
	}

	if err := dc.SavePNG(dst); err != nil {
		return fmt.Errorf("failed to save preview: %v", err)
	}
	return nil
}
