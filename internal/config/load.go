package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the outcome of resolving and reading the runtime config.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves the config path, reads the file if present, and runs
// the content through Parse. A missing file is not an error: defaults
// apply and a warning records the absence.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	defaults := Default()
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		warn := Warning{Message: fmt.Sprintf("config %s not found, falling back to defaults", path)}
		return Loaded{Path: path, Config: defaults, Warnings: []Warning{warn}}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(raw), defaults)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}
