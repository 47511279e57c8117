package runtime

import (
	"fmt"
	"os"
	stdrt "runtime"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config tunes a swarm.
type Config struct {
	// Schedulers is the worker pool size. 0 means one per CPU.
	Schedulers int
	// ReductionBudget is the slice granted to a process per dispatch.
	ReductionBudget int
	// MinHeapSlots sizes a freshly spawned process heap.
	MinHeapSlots int
	// MaxHeapSlots bounds any single process heap. 0 derives a ceiling
	// from physical memory (unbounded when that cannot be determined).
	MaxHeapSlots int
	// IdleSleep is how long an idle scheduler dozes between steal scans.
	IdleSleep time.Duration

	Logger *zap.Logger
	Clock  clock.Clock
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Schedulers:      stdrt.NumCPU(),
		ReductionBudget: 2000,
		MinHeapSlots:    MinHeapSlots,
		IdleSleep:       500 * time.Microsecond,
	}
}

// normalize validates cfg and fills defaults.
func (c Config) normalize() (Config, error) {
	if c.Schedulers < 0 {
		return c, fmt.Errorf("invalid scheduler count %d", c.Schedulers)
	}
	if c.Schedulers == 0 {
		c.Schedulers = stdrt.NumCPU()
	}
	if c.ReductionBudget <= 0 {
		c.ReductionBudget = 2000
	}
	if c.MinHeapSlots < MinHeapSlots {
		c.MinHeapSlots = MinHeapSlots
	}
	if c.MaxHeapSlots < 0 {
		return c, fmt.Errorf("invalid max heap slots %d", c.MaxHeapSlots)
	}
	if c.MaxHeapSlots > 0 && c.MaxHeapSlots < c.MinHeapSlots {
		return c, fmt.Errorf("max heap slots %d below minimum %d", c.MaxHeapSlots, c.MinHeapSlots)
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = 500 * time.Microsecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return c, nil
}

// fileConfig mirrors Config for YAML decoding; durations are strings in
// time.ParseDuration form ("2ms", "1s").
type fileConfig struct {
	Schedulers      *int    `yaml:"schedulers"`
	ReductionBudget *int    `yaml:"reduction_budget"`
	MinHeapSlots    *int    `yaml:"min_heap_slots"`
	MaxHeapSlots    *int    `yaml:"max_heap_slots"`
	IdleSleep       *string `yaml:"idle_sleep"`
}

// LoadConfig reads a YAML configuration file over the defaults. Absent keys
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Schedulers != nil {
		cfg.Schedulers = *fc.Schedulers
	}
	if fc.ReductionBudget != nil {
		cfg.ReductionBudget = *fc.ReductionBudget
	}
	if fc.MinHeapSlots != nil {
		cfg.MinHeapSlots = *fc.MinHeapSlots
	}
	if fc.MaxHeapSlots != nil {
		cfg.MaxHeapSlots = *fc.MaxHeapSlots
	}
	if fc.IdleSleep != nil {
		d, err := time.ParseDuration(*fc.IdleSleep)
		if err != nil {
			return cfg, fmt.Errorf("parse config %s: idle_sleep: %w", path, err)
		}
		cfg.IdleSleep = d
	}
	return cfg, nil
}
