// Package archive unpacks compressed Landsat scene packages.
package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/greenwatch/landsat-monitor/internal/tools"
)

// EnsureDir creates the directory if it does not exist yet and returns it.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	return path, nil
}

// Extract unpacks a bzip2 tarball into dst using the configured tar binary.
func Extract(ctx context.Context, tarCmd, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("scene package %s is not readable: %w", src, err)
	}
	if _, err := EnsureDir(dst); err != nil {
		return err
	}
	return tools.Run(ctx, tarCmd, "-jxf", src, "-C", dst)
}
