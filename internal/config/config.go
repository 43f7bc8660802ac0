// Package config loads the service configuration from a YAML file, a .env
// file and DATACHARTS_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/user/datacharts-go/internal/logging"
)

const envPrefix = "DATACHARTS_"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	DataDir   string         `yaml:"data_dir"`
	StaticDir string         `yaml:"static_dir"`
	Datasets  DatasetFiles   `yaml:"datasets"`
	Charts    ChartConfig    `yaml:"charts"`
	Log       logging.Config `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatasetFiles holds the CSV file name of each dataset, relative to DataDir
// unless absolute.
type DatasetFiles struct {
	Electricity string `yaml:"electricity"`
	Railway     string `yaml:"railway"`
	Health      string `yaml:"health"`
	Wind        string `yaml:"wind"`
}

type ChartConfig struct {
	// Naming is "content" (hash-suffixed file names) or "fixed".
	Naming string `yaml:"naming"`
	// SampleSeed seeds the health dataset samples.
	SampleSeed uint64 `yaml:"sample_seed"`
	// WindWindowRows bounds how many data rows of the wind file are read.
	WindWindowRows int `yaml:"wind_window_rows"`
	// Retention is how long superseded content-named images are kept; 0
	// keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// Default returns the configuration matching the file names the datasets
// are shipped with.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		DataDir:   ".",
		StaticDir: "static",
		Datasets: DatasetFiles{
			Electricity: "Elctricsity_-capacity-statewise.csv",
			Railway:     "Train_details_22122017.csv",
			Health:      "WHO-COVID-19-global-daily-data.csv",
			Wind:        "wind_file2012.csv",
		},
		Charts: ChartConfig{
			Naming:         "content",
			SampleSeed:     42,
			WindWindowRows: 100000,
			Retention:      10 * time.Minute,
		},
		Log: logging.Config{Level: "info", Format: "console"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults, .env and the environment are consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return cfg, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ADDR":             &cfg.Server.Addr,
		"DATA_DIR":         &cfg.DataDir,
		"STATIC_DIR":       &cfg.StaticDir,
		"ELECTRICITY_FILE": &cfg.Datasets.Electricity,
		"RAILWAY_FILE":     &cfg.Datasets.Railway,
		"HEALTH_FILE":      &cfg.Datasets.Health,
		"WIND_FILE":        &cfg.Datasets.Wind,
		"CHART_NAMING":     &cfg.Charts.Naming,
		"LOG_LEVEL":        &cfg.Log.Level,
		"LOG_FORMAT":       &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "SAMPLE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSAMPLE_SEED %q: %w", envPrefix, v, err)
		}
		cfg.Charts.SampleSeed = seed
	}
	if v := os.Getenv(envPrefix + "WIND_WINDOW_ROWS"); v != "" {
		rows, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWIND_WINDOW_ROWS %q: %w", envPrefix, v, err)
		}
		cfg.Charts.WindWindowRows = rows
	}
	if v := os.Getenv(envPrefix + "CHART_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCHART_RETENTION %q: %w", envPrefix, v, err)
		}
		cfg.Charts.Retention = d
	}
	return nil
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.StaticDir == "" {
		errs = append(errs, errors.New("static_dir must not be empty"))
	}
	if c.Charts.Naming != "content" && c.Charts.Naming != "fixed" {
		errs = append(errs, fmt.Errorf("charts.naming must be \"content\" or \"fixed\", got %q", c.Charts.Naming))
	}
	if c.Charts.Retention < 0 {
		errs = append(errs, fmt.Errorf("charts.retention must not be negative, got %s", c.Charts.Retention))
	}
	if c.Charts.WindWindowRows < 0 {
		errs = append(errs, fmt.Errorf("charts.wind_window_rows must not be negative, got %d", c.Charts.WindWindowRows))
	}
	for name, file := range map[string]string{
		"electricity": c.Datasets.Electricity,
		"railway":     c.Datasets.Railway,
		"health":      c.Datasets.Health,
		"wind":        c.Datasets.Wind,
	} {
		if file == "" {
			errs = append(errs, fmt.Errorf("datasets.%s must not be empty", name))
		}
	}
	return errors.Join(errs...)
}

// DatasetPath resolves a dataset file name against DataDir.
func (c Config) DatasetPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}
