// Package config carries the tunable size constants spec.md §6 lists as
// policy rather than hard limits: pool slab sizes, Stream/DualBuffer bounds,
// HistoryRing capacity, and the table limits on simultaneously open
// handles. The shape (a plain struct tree plus a DefaultConfig
// constructor) follows the teacher's internal/config.Config; unlike the
// teacher, these fields are actually loaded from a file via Load.
//
// Of these, only the pool slab sizes reach a package at run time
// (xpool.New takes a PoolConfig); stream.New reads its default size from
// DefaultConfig, and the dualbuf, stream and history bounds are constants
// in those packages that a loaded Config does not change.
package config

import (
	"os"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree.
type Config struct {
	Pool    PoolConfig    `yaml:"pool"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Stream  StreamConfig  `yaml:"stream"`
	History HistoryConfig `yaml:"history"`
}

// PoolConfig sizes the three SizedPool slabs.
type PoolConfig struct {
	SmallSize  int `yaml:"smallSize"`
	MediumSize int `yaml:"mediumSize"`
	LargeSize  int `yaml:"largeSize"`
}

// BufferConfig bounds DualBuffer sizing and the open-buffer table.
type BufferConfig struct {
	MinSize int `yaml:"minSize"`
	MaxSize int `yaml:"maxSize"`
	MaxOpen int `yaml:"maxOpen"`
}

// StreamConfig bounds Stream sizing, the fd table, and its mount path.
type StreamConfig struct {
	MinSize     int    `yaml:"minSize"`
	MaxSize     int    `yaml:"maxSize"`
	DefaultSize int    `yaml:"defaultSize"`
	MaxOpenFds  int    `yaml:"maxOpenFds"`
	MountPath   string `yaml:"mountPath"`
}

// HistoryConfig sizes the command-history ring.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// DefaultConfig returns the spec.md §6 constants as defaults: pool slabs
// {64, 128, 256}, Stream bounds [32, 16384] default 1024, DualBuffer
// bounds [64, 32768], HistoryRing capacity 1024, max 10 open DualBuffers
// and 3 open Streams, mounted at /ubuf.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			SmallSize:  64,
			MediumSize: 128,
			LargeSize:  256,
		},
		Buffer: BufferConfig{
			MinSize: 64,
			MaxSize: 32768,
			MaxOpen: 10,
		},
		Stream: StreamConfig{
			MinSize:     32,
			MaxSize:     16384,
			DefaultSize: 1024,
			MaxOpenFds:  3,
			MountPath:   "/ubuf",
		},
		History: HistoryConfig{
			Capacity: 1024,
		},
	}
}

// Load reads a YAML file of overrides at path and merges it onto
// DefaultConfig. A field absent from the file keeps its default, since
// yaml.Unmarshal only overwrites fields that are present; a field present
// with a zero value overwrites the default with that zero.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, trace.Wrap(err, "reading config file %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, trace.Wrap(err, "parsing config file %q", path)
	}
	return cfg, nil
}
