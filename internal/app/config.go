package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/reliefgrid/internal/grid"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string   // hcl file or directory of job files
	Jobs       []string // job names to run; empty runs all
	Tiles      []string // tile ids to consider; empty means the whole grid

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int    // 0 defers to the job, then to the CPU count
	TempDir         string // parent of working directories; "" is os.TempDir()
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	for _, id := range cfg.Tiles {
		if _, _, err := grid.ParseID(id); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
