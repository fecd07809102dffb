package app

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// DAGPath is a single .hcl file or a directory of .hcl files declaring steps.
	DAGPath string
	// ModulesPath holds runner manifest files.
	ModulesPath string

	CatalogDir  string
	SnapshotDir string
	StateDBPath string
	UploadURL   string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	Attempts        int

	// Force rebuilds every step regardless of checksums.
	Force bool
	// DryRun prints the plan without executing anything.
	DryRun bool
	// Select narrows the run to steps whose URI contains this substring,
	// plus their upstream dependencies.
	Select string
}

// envDefaults mirrors the Config fields that can come from the environment.
type envDefaults struct {
	ModulesPath string `env:"CATWALK_MODULES_PATH" envDefault:"modules"`
	CatalogDir  string `env:"CATWALK_CATALOG_DIR" envDefault:"data/catalog"`
	SnapshotDir string `env:"CATWALK_SNAPSHOT_DIR" envDefault:"data/snapshots"`
	StateDBPath string `env:"CATWALK_STATE_DB" envDefault:"data/state.db"`
	UploadURL   string `env:"CATWALK_UPLOAD_URL"`
}

// NewConfig validates a config and fills unset fields from the environment.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DAGPath == "" {
		return nil, errors.New("DAGPath is a required configuration field and cannot be empty")
	}

	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.ModulesPath == "" {
		cfg.ModulesPath = defaults.ModulesPath
	}
	if cfg.CatalogDir == "" {
		cfg.CatalogDir = defaults.CatalogDir
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = defaults.SnapshotDir
	}
	if cfg.StateDBPath == "" {
		cfg.StateDBPath = defaults.StateDBPath
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaults.UploadURL
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	return &cfg, nil
}
