package change

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenwatch/landsat-monitor/internal/raster"
	"github.com/greenwatch/landsat-monitor/internal/regions"
)

func TestThresholdRowDirectionSensitive(t *testing.T) {
	delta := []float32{-0.09, -0.08, -0.07, 0, 0.5, -1}
	mask := make([]uint8, len(delta))

	thresholdRow(delta, -0.08, mask)

	assert.Equal(t, []uint8{1, 0, 0, 0, 0, 1}, mask)
}

func TestThresholdRowIdenticalScenes(t *testing.T) {
	delta := make([]float32, 16)
	mask := make([]uint8, 16)

	thresholdRow(delta, -0.08, mask)

	for i, v := range mask {
		assert.Zero(t, v, "pixel %d", i)
	}
}

type stubExtractor struct {
	called bool
}

func (s *stubExtractor) Extract(_ context.Context, _ string, p regions.Params) (string, error) {
	s.called = true
	return p.GeoJSONPath, nil
}

func TestDetectSkipsWhenPriorMissing(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "current_ndvi.tif")
	require.NoError(t, os.WriteFile(current, []byte("stub"), 0o644))

	extractor := &stubExtractor{}
	d := &Detector{Threshold: -0.08, MinRegionPixels: 33, TargetEPSG: 4674, Extractor: extractor}

	detection := filepath.Join(dir, "detection.geojson")
	res, err := d.Detect(context.Background(), current, filepath.Join(dir, "prior_ndvi.tif"), dir, detection)
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.Reason, "prior_ndvi.tif")
	assert.False(t, extractor.called)
	assert.NoFileExists(t, detection)
}

func TestDetectSkipsWhenCurrentMissing(t *testing.T) {
	dir := t.TempDir()
	prior := filepath.Join(dir, "prior_ndvi.tif")
	require.NoError(t, os.WriteFile(prior, []byte("stub"), 0o644))

	d := &Detector{Threshold: -0.08, MinRegionPixels: 33, TargetEPSG: 4674, Extractor: &stubExtractor{}}

	res, err := d.Detect(context.Background(), filepath.Join(dir, "current_ndvi.tif"), prior, dir, filepath.Join(dir, "detection.geojson"))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

// writingExtractor stands in for the GDAL toolchain and writes an empty
// collection so Detect can load its result.
type writingExtractor struct {
	calls int
}

func (w *writingExtractor) Extract(_ context.Context, _ string, p regions.Params) (string, error) {
	w.calls++
	return p.GeoJSONPath, os.WriteFile(p.GeoJSONPath, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644)
}

type alignmentRecorder struct {
	warped     []raster.Extent
	subtracted [][2]string
	thresholds []float64
}

func newRecordedDetector(extractor regions.Extractor, rec *alignmentRecorder, extents map[string]raster.Extent) *Detector {
	return &Detector{
		Threshold:       -0.08,
		MinRegionPixels: 33,
		TargetEPSG:      4674,
		Extractor:       extractor,
		extentOf: func(path string) (raster.Extent, error) {
			return extents[path], nil
		},
		warp: func(_ string, ext raster.Extent, _ string) error {
			rec.warped = append(rec.warped, ext)
			return nil
		},
		subtract: func(currentPath, priorPath, _ string) error {
			rec.subtracted = append(rec.subtracted, [2]string{currentPath, priorPath})
			return nil
		},
		mask: func(_ string, threshold float64, _ string) error {
			rec.thresholds = append(rec.thresholds, threshold)
			return nil
		},
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
}

func TestDetectEqualExtentsSkipsResampling(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "current_ndvi.tif")
	prior := filepath.Join(dir, "prior_ndvi.tif")
	touch(t, current)
	touch(t, prior)

	shared := raster.Extent{MinX: 0, MinY: 0, MaxX: 120, MaxY: 120}
	rec := &alignmentRecorder{}
	extractor := &writingExtractor{}
	d := newRecordedDetector(extractor, rec, map[string]raster.Extent{current: shared, prior: shared})

	res, err := d.Detect(context.Background(), current, prior, dir, filepath.Join(dir, "detection.geojson"))
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	// Identical extents difference on the original grids.
	assert.Empty(t, rec.warped)
	require.Len(t, rec.subtracted, 1)
	assert.Equal(t, [2]string{current, prior}, rec.subtracted[0])
	assert.Equal(t, []float64{-0.08}, rec.thresholds)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, 0, res.Regions.Count())
}

func TestDetectOverlappingExtentsWarpsBoth(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "current_ndvi.tif")
	prior := filepath.Join(dir, "prior_ndvi.tif")
	touch(t, current)
	touch(t, prior)

	rec := &alignmentRecorder{}
	d := newRecordedDetector(&writingExtractor{}, rec, map[string]raster.Extent{
		current: {MinX: 0, MinY: 0, MaxX: 100, MaxY: 100},
		prior:   {MinX: 30, MinY: -10, MaxX: 130, MaxY: 90},
	})

	res, err := d.Detect(context.Background(), current, prior, dir, filepath.Join(dir, "detection.geojson"))
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	// Both inputs are resampled onto the intersection before differencing.
	common := raster.Extent{MinX: 30, MinY: 0, MaxX: 100, MaxY: 90}
	assert.Equal(t, []raster.Extent{common, common}, rec.warped)
	require.Len(t, rec.subtracted, 1)
	assert.Equal(t, [2]string{
		filepath.Join(dir, "current_ndvi_warp.tif"),
		filepath.Join(dir, "prior_ndvi_warp.tif"),
	}, rec.subtracted[0])
}

func TestDetectDisjointExtents(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "current_ndvi.tif")
	prior := filepath.Join(dir, "prior_ndvi.tif")
	touch(t, current)
	touch(t, prior)

	rec := &alignmentRecorder{}
	d := newRecordedDetector(&writingExtractor{}, rec, map[string]raster.Extent{
		current: {MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		prior:   {MinX: 50, MinY: 50, MaxX: 60, MaxY: 60},
	})

	res, err := d.Detect(context.Background(), current, prior, dir, filepath.Join(dir, "detection.geojson"))
	require.Error(t, err)
	assert.Nil(t, res)

	var disjoint *raster.DisjointExtentError
	require.ErrorAs(t, err, &disjoint)
	assert.Empty(t, rec.warped)
	assert.Empty(t, rec.subtracted)
}

func TestWorkPath(t *testing.T) {
	got := workPath("/work", "/delivery/LC8_001-063_20131227_LGN00_ndvi.tif", "_warp.tif")
	assert.Equal(t, filepath.Join("/work", "LC8_001-063_20131227_LGN00_ndvi_warp.tif"), got)
}
