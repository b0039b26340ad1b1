package config

import "runtime"

// PseudoConfig controls the pseudopotential library index.
type PseudoConfig struct {
	// Dirs are scanned in order; earlier directories win ties.
	Dirs []string `yaml:"dirs"`
	// IndexPath is the SQLite database holding the scanned index.
	IndexPath string `yaml:"index_path" validate:"required"`
	// PreferredTags rank candidate files for one element, e.g. "pbe", "paw".
	PreferredTags []string `yaml:"preferred_tags"`
	// Extensions are the file suffixes treated as pseudopotentials.
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	// ScanWorkers caps concurrent directory scans.
	ScanWorkers int `yaml:"scan_workers" validate:"gte=1,lte=32"`
}

// DefaultPseudoConfig returns defaults for the pseudopotential library.
func DefaultPseudoConfig() PseudoConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return PseudoConfig{
		Dirs:          []string{"pseudo"},
		IndexPath:     ".qestudio/pseudo.db",
		PreferredTags: []string{"pbe", "paw"},
		Extensions:    []string{".upf", ".UPF"},
		ScanWorkers:   workers,
	}
}
