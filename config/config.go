// Package config loads the storage core's tunables: buffer pool size, page
// size, B+-tree fanouts and key width.
package config

import (
	"fmt"

	"github.com/pelletier/go-toml"
	"talondb/common"
)

// Config holds the knobs spec.md §6 names: pool_size, page_size,
// leaf_max_size, internal_max_size, key_width.
type Config struct {
	PoolSize        int            `toml:"pool_size"`
	PageSize        int            `toml:"page_size"`
	LeafMaxSize     int            `toml:"leaf_max_size"`
	InternalMaxSize int            `toml:"internal_max_size"`
	KeyWidth        common.KeyWidth `toml:"key_width"`
}

// Default returns a small, test-friendly configuration.
func Default() Config {
	return Config{
		PoolSize:        64,
		PageSize:        4096,
		LeafMaxSize:     4,
		InternalMaxSize: 4,
		KeyWidth:        common.KeyWidth8,
	}
}

// Load reads a TOML file at path and overlays it on Default, then validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()

	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the buffer pool and tree rely on.
func (c Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("config: pool_size must be positive, got %d", c.PoolSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if !c.KeyWidth.IsValid() {
		return fmt.Errorf("config: key_width must be one of 4,8,16,32,64, got %d", c.KeyWidth)
	}
	// a node must be able to hold at least one entry beyond its minimum
	// after a redistribute borrows a single entry from a neighbour.
	if c.LeafMaxSize < 3 {
		return fmt.Errorf("config: leaf_max_size must be >= 3, got %d", c.LeafMaxSize)
	}
	if c.InternalMaxSize < 3 {
		return fmt.Errorf("config: internal_max_size must be >= 3, got %d", c.InternalMaxSize)
	}
	return nil
}

// LeafMinSize is the minimum occupied size a non-root leaf must hold,
// ceil((max_size-1)/2) per spec.md §3's sizing rules.
func (c Config) LeafMinSize() int {
	return ceilDiv(c.LeafMaxSize-1, 2)
}

// InternalMinSize is the minimum occupied size a non-root internal node
// must hold, ceil(max_size/2) per spec.md §3's sizing rules.
func (c Config) InternalMinSize() int {
	return ceilDiv(c.InternalMaxSize, 2)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
