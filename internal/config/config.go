// Package config loads .annd.toml, the CLI's optional defaults file, the
// same way cmd/sift/main.go loads .sift.toml: a best-effort read-and-
// unmarshal at startup whose fields only override a flag's default when set
// and non-zero, so explicit flags still win.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// File is the shape of .annd.toml. Every field is optional; a zero value
// means "let the CLI's own default stand."
type File struct {
	K          int     `toml:"k"`
	Metric     string  `toml:"metric"`
	NTrees     int     `toml:"n-trees"`
	LeafSize   int     `toml:"leaf-size"`
	NThreads   int     `toml:"n-threads"`
	Seed       int64   `toml:"seed"`
	MaxIters   int     `toml:"max-iters"`
	Delta      float64 `toml:"delta"`
	Rho        float64 `toml:"rho"`
}

// Load reads path and parses it as TOML. A missing file is not an error —
// it returns a zero-valued File, a best-effort load — but a
// present-and-malformed file is reported.
func Load(path string) (File, error) {
	var f File
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}
