// Package config holds the processing policy values and external tool names,
// loadable from a YAML file so deployments and tests can substitute them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Index struct {
		// InvalidQACodes are the BQA values marking a pixel as cloud,
		// cirrus or otherwise unusable for index computation.
		InvalidQACodes []uint16 `yaml:"invalidQACodes"`

		// MinGateReflectance is the B6 reflectance below which a pixel
		// is not physically meaningful and the index is forced to zero.
		MinGateReflectance float64 `yaml:"minGateReflectance"`
	} `yaml:"index"`

	Change struct {
		// Threshold flags a pixel when the NDVI delta drops below it.
		// Only decreases are flagged.
		Threshold float64 `yaml:"threshold"`

		// MinRegionPixels is the sieve threshold; 33 pixels of 30m
		// Landsat data is roughly 30000 square metres.
		MinRegionPixels int `yaml:"minRegionPixels"`

		// TargetEPSG is the CRS of the vector product. 4674 is
		// Sirgas 2000.
		TargetEPSG int `yaml:"targetEPSG"`
	} `yaml:"change"`

	Tools struct {
		Extract    string `yaml:"extract"`
		Calibrate  string `yaml:"calibrate"`
		BuildVRT   string `yaml:"buildVRT"`
		Translate  string `yaml:"translate"`
		Sieve      string `yaml:"sieve"`
		Polygonize string `yaml:"polygonize"`
		OGR2OGR    string `yaml:"ogr2ogr"`
	} `yaml:"tools"`

	Batch struct {
		// Workers bounds how many scene archives are processed at once.
		Workers int `yaml:"workers"`
	} `yaml:"batch"`

	// Quiet suppresses progress bars.
	Quiet bool `yaml:"quiet"`
}

// DefaultInvalidQACodes are the Landsat 8 pre-collection BQA values for
// cloudy, cirrus-contaminated and otherwise compromised pixels.
var DefaultInvalidQACodes = []uint16{
	61440, 59424, 57344, 56320, 53248, 52256, 52224, 49184, 49152,
	48128, 45056, 43040, 39936, 36896, 36864, 32768, 31744, 28672,
}

// Default returns the production policy values.
func Default() *Config {
	cfg := &Config{}
	cfg.Index.InvalidQACodes = append([]uint16(nil), DefaultInvalidQACodes...)
	cfg.Index.MinGateReflectance = 0.1
	cfg.Change.Threshold = -0.08
	cfg.Change.MinRegionPixels = 33
	cfg.Change.TargetEPSG = 4674
	cfg.Tools.Extract = "tar"
	cfg.Tools.Calibrate = "ref_toa"
	cfg.Tools.BuildVRT = "gdalbuildvrt"
	cfg.Tools.Translate = "gdal_translate"
	cfg.Tools.Sieve = "gdal_sieve.py"
	cfg.Tools.Polygonize = "gdal_polygonize.py"
	cfg.Tools.OGR2OGR = "ogr2ogr"
	cfg.Batch.Workers = 2
	return cfg
}

// Load overlays a YAML file on top of the defaults. Fields absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
