package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/gammazero/workerpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/greenwatch/landsat-monitor/internal/config"
	"github.com/greenwatch/landsat-monitor/internal/notification"
	"github.com/greenwatch/landsat-monitor/internal/pipeline"
	"github.com/greenwatch/landsat-monitor/internal/properties"
	"github.com/greenwatch/landsat-monitor/internal/scene"
)

var (
	configPath string
	baseDir    string
	quiet      bool
	workers    int
)

func printBanner() {
	banner := figure.NewFigure("landsat", "isometric1", true)
	bannercolor.Cyan(banner.String())
	fmt.Println()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		cfg.Quiet = quiet
		return cfg, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if quiet {
		cfg.Quiet = true
	}
	return cfg, nil
}

func resolveBaseDir() string {
	if baseDir != "" {
		return baseDir
	}
	return properties.RootPath()
}

func processScene(cmd *cobra.Command, archivePath string, cfg *config.Config) error {
	p, err := pipeline.New(archivePath, resolveBaseDir(), cfg)
	if err != nil {
		return err
	}

	if err := p.Run(cmd.Context()); err != nil {
		bannercolor.Red("Scene %s failed: %s", p.Scene().ID, err.Error())
		notification.SendErrorNotification(fmt.Sprintf("Scene %s failed: %s", p.Scene().ID, err.Error()))
		return err
	}

	bannercolor.Green("Scene %s processed, products in %s", p.Scene().ID, p.Paths().DeliveryDir)
	notification.SendSuccessNotification(fmt.Sprintf("Scene %s processed, products in %s", p.Scene().ID, p.Paths().DeliveryDir))
	return nil
}

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <scene archive>",
		Short: "Process one compressed Landsat 8 scene package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return processScene(cmd, args[0], cfg)
		},
	}
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <directory>",
		Short: "Process every scene archive found in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Progress bars interleave badly across workers.
			cfg.Quiet = true

			entries, err := os.ReadDir(args[0])
			if err != nil {
				return err
			}

			var archives []string
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if scene.IsArchive(entry.Name()) {
					archives = append(archives, filepath.Join(args[0], entry.Name()))
				}
			}
			if len(archives) == 0 {
				return fmt.Errorf("no scene archives found in %s", args[0])
			}

			// Scenes of one path/row must run oldest first so each can
			// find its predecessor's NDVI; only distinct path/rows are
			// parallelized.
			groups, err := scene.GroupByPathRow(archives)
			if err != nil {
				return err
			}

			poolSize := workers
			if poolSize <= 0 {
				poolSize = cfg.Batch.Workers
			}
			wp := workerpool.New(poolSize)

			var mu sync.Mutex
			failed := 0
			for _, group := range groups {
				g := group
				wp.Submit(func() {
					for _, archivePath := range g {
						if err := processScene(cmd, archivePath, cfg); err != nil {
							mu.Lock()
							failed++
							mu.Unlock()
						}
					}
				})
			}
			wp.StopWait()

			if failed > 0 {
				return fmt.Errorf("%d of %d scenes failed", failed, len(archives))
			}
			bannercolor.Green("All %d scenes processed", len(archives))
			return nil
		},
	}
}

func main() {
	// Optional; production deployments configure webhooks through it.
	godotenv.Load()

	godal.RegisterAll()

	root := &cobra.Command{
		Use:   "landsat-monitor",
		Short: "Landsat 8 NDVI and vegetation-loss change detection",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&baseDir, "base-dir", "", "base directory for temp and delivery files (default $LANDSAT_ROOT_PATH or ~/landsat)")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress bars")
	root.PersistentFlags().IntVar(&workers, "workers", 0, "concurrent scenes in batch mode")

	root.AddCommand(newProcessCmd(), newBatchCmd())

	printBanner()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
