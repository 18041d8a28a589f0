// Package pipeline runs the full per-scene processing chain: extraction,
// calibration, NDVI and RGB products, QA-band delivery, change detection and
// cleanup.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greenwatch/landsat-monitor/internal/archive"
	"github.com/greenwatch/landsat-monitor/internal/change"
	"github.com/greenwatch/landsat-monitor/internal/config"
	"github.com/greenwatch/landsat-monitor/internal/manifest"
	"github.com/greenwatch/landsat-monitor/internal/ndvi"
	"github.com/greenwatch/landsat-monitor/internal/preview"
	"github.com/greenwatch/landsat-monitor/internal/regions"
	"github.com/greenwatch/landsat-monitor/internal/scene"
	"github.com/greenwatch/landsat-monitor/internal/toa"
	"github.com/greenwatch/landsat-monitor/internal/tools"
)

type Pipeline struct {
	cfg        *config.Config
	scene      scene.Scene
	paths      scene.PathSet
	archive    string
	calibrator toa.Calibrator
	detector   *change.Detector
}

// New parses the scene identity out of the archive name and prepares the
// path bundle under baseDir.
func New(archivePath, baseDir string, cfg *config.Config) (*Pipeline, error) {
	sc, err := scene.Parse(archivePath)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:     cfg,
		scene:   sc,
		paths:   sc.Paths(baseDir),
		archive: archivePath,
		calibrator: &toa.CommandCalibrator{
			Command: cfg.Tools.Calibrate,
		},
		detector: &change.Detector{
			Threshold:       cfg.Change.Threshold,
			MinRegionPixels: cfg.Change.MinRegionPixels,
			TargetEPSG:      cfg.Change.TargetEPSG,
			Extractor: &regions.GDALTools{
				Sieve:      cfg.Tools.Sieve,
				Polygonize: cfg.Tools.Polygonize,
				OGR2OGR:    cfg.Tools.OGR2OGR,
			},
		},
	}, nil
}

func (p *Pipeline) Scene() scene.Scene   { return p.scene }
func (p *Pipeline) Paths() scene.PathSet { return p.paths }

// Run processes the scene end to end. On failure the working directory is
// left in place for inspection; it is removed only after a fully successful
// run.
func (p *Pipeline) Run(ctx context.Context) error {
	fmt.Printf("Processing scene %s\n", p.scene.ID)

	if _, err := archive.EnsureDir(p.paths.DeliveryDir); err != nil {
		return err
	}

	fmt.Printf("Extracting %s - it might take some time\n", p.scene.ID)
	if err := archive.Extract(ctx, p.cfg.Tools.Extract, p.archive, p.paths.TempDir); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	// The RGB quicklook reads the raw bands while calibration and NDVI
	// work on their own outputs, so both chains can run at once.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.makeRGB(gctx) })
	g.Go(func() error {
		if err := p.calibrate(gctx); err != nil {
			return err
		}
		return p.makeNDVI()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p.deliverBQA()

	result, err := p.detectChange(ctx)
	if err != nil {
		return err
	}

	if err := p.writeManifest(result); err != nil {
		return err
	}

	if err := os.RemoveAll(p.paths.TempDir); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

func (p *Pipeline) calibrate(ctx context.Context) error {
	bands := []string{p.paths.B4, p.paths.B5, p.paths.B6}
	if err := p.calibrator.Calibrate(ctx, p.paths.MTL, bands, p.paths.TempDir, scene.TOASuffix); err != nil {
		return fmt.Errorf("reflectance calibration failed: %w", err)
	}
	return nil
}

// makeRGB builds the r6g5b4 quicklook with a virtual mosaic of the raw
// bands.
func (p *Pipeline) makeRGB(ctx context.Context) error {
	if err := tools.Run(ctx, p.cfg.Tools.BuildVRT, "-q", "-separate",
		p.paths.VRT, p.paths.B6, p.paths.B5, p.paths.B4); err != nil {
		return fmt.Errorf("building RGB mosaic failed: %w", err)
	}
	if err := tools.Run(ctx, p.cfg.Tools.Translate, "-q", "-co", "COMPRESS=LZW",
		p.paths.VRT, p.paths.RGB); err != nil {
		return fmt.Errorf("RGB conversion failed: %w", err)
	}
	fmt.Printf("Created RGB file in %s\n", p.paths.RGB)
	return nil
}

func (p *Pipeline) makeNDVI() error {
	compositor := ndvi.NewCompositor(p.cfg.Index.InvalidQACodes, p.cfg.Index.MinGateReflectance, p.cfg.Quiet)
	if err := compositor.Create(ndvi.BandSet{
		Red:  p.paths.B4TOA,
		NIR:  p.paths.B5TOA,
		Gate: p.paths.B6TOA,
		QA:   p.paths.BQA,
	}, p.paths.NDVI); err != nil {
		return fmt.Errorf("NDVI computation failed: %w", err)
	}
	fmt.Printf("NDVI created in %s\n", p.paths.NDVI)
	return nil
}

// deliverBQA relocates the quality band into the delivery directory under
// the canonical name. A missing BQA is reported but does not stop the run.
func (p *Pipeline) deliverBQA() {
	if err := DeliverBQA(p.paths.BQA, p.paths.DeliveryBQA); err != nil {
		fmt.Printf("BQA file not delivered: %v\n", err)
	}
}

// DeliverBQA moves the quality band file to its delivery location.
func DeliverBQA(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("BQA file not found: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move BQA file: %w", err)
	}
	return nil
}

func (p *Pipeline) detectChange(ctx context.Context) (*change.Result, error) {
	result, err := p.detector.Detect(ctx, p.paths.NDVI, p.paths.PriorNDVI, p.paths.TempDir, p.paths.Detection)
	if err != nil {
		return nil, fmt.Errorf("change detection failed: %w", err)
	}

	if result.Skipped {
		fmt.Printf("Change detection skipped: %s\n", result.Reason)
		return result, nil
	}

	fmt.Printf("Change detection created in %s (%d regions)\n", p.paths.Detection, result.Regions.Count())

	if err := preview.RenderMask(result.MaskPath, p.paths.Preview); err != nil {
		// Preview is a convenience product; failing to render it does
		// not invalidate the detection.
		fmt.Printf("Preview not rendered: %v\n", err)
	}
	return result, nil
}

func (p *Pipeline) writeManifest(result *change.Result) error {
	entry := manifest.Entry{
		SceneID:       p.scene.ID,
		Acquired:      p.scene.Acquired.Format("20060102"),
		NDVI:          p.paths.NDVI,
		BQA:           p.paths.DeliveryBQA,
		ChangeSkipped: result.Skipped,
		ProcessedAt:   time.Now().UTC(),
	}
	if !result.Skipped {
		entry.Detection = p.paths.Detection
		entry.Regions = result.Regions.Count()
	}
	return manifest.Append(p.paths.Manifest, entry)
}
