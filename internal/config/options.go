package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options represents the simplejs.yaml configuration consumed by the
// CLI harness. All fields are optional; zero values fall back to the
// defaults above.
type Options struct {
	// ArenaBytes is the size of the fixed memory buffer handed to the
	// engine. The engine never allocates outside it.
	ArenaBytes int `yaml:"arena_bytes,omitempty"`

	// GCThresholdBytes triggers a collection cycle when live bytes
	// would exceed it. Defaults to three quarters of the arena.
	GCThresholdBytes int `yaml:"gc_threshold_bytes,omitempty"`

	// MaxCallStackBytes bounds nested evaluation depth. Exceeding it
	// yields a RangeError instead of growing the native stack.
	MaxCallStackBytes int `yaml:"max_call_stack_bytes,omitempty"`
}

// LoadOptions reads and validates a yaml options file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &opts, nil
}

// Validate rejects settings the engine cannot honor.
func (o *Options) Validate() error {
	if o.ArenaBytes != 0 && o.ArenaBytes < MinArenaSize {
		return fmt.Errorf("arena_bytes %d is below the minimum %d", o.ArenaBytes, MinArenaSize)
	}
	if o.GCThresholdBytes < 0 {
		return fmt.Errorf("gc_threshold_bytes must not be negative")
	}
	if o.MaxCallStackBytes < 0 {
		return fmt.Errorf("max_call_stack_bytes must not be negative")
	}
	if o.ArenaBytes != 0 && o.GCThresholdBytes > o.ArenaBytes {
		return fmt.Errorf("gc_threshold_bytes %d exceeds arena_bytes %d", o.GCThresholdBytes, o.ArenaBytes)
	}
	return nil
}
