// Package toa is the boundary to the reflectance calibration collaborator,
// which converts raw digital numbers to top-of-atmosphere reflectance.
package toa

import (
	"context"
	"fmt"
	"os"

	"github.com/greenwatch/landsat-monitor/internal/tools"
)

// Calibrator produces calibrated reflectance bands next to the raw ones,
// with the given filename suffix.
type Calibrator interface {
	Calibrate(ctx context.Context, mtlPath string, bandPaths []string, outDir, suffix string) error
}

// CommandCalibrator invokes an external calibration tool.
type CommandCalibrator struct {
	Command string
}

func (c *CommandCalibrator) Calibrate(ctx context.Context, mtlPath string, bandPaths []string, outDir, suffix string) error {
	if _, err := os.Stat(mtlPath); err != nil {
		return fmt.Errorf("MTL file %s not found: %w", mtlPath, err)
	}

	args := []string{"--mtl", mtlPath, "--outdir", outDir, "--suffix", suffix}
	args = append(args, bandPaths...)
	return tools.Run(ctx, c.Command, args...)
}
