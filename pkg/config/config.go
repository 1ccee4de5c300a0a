// Package config holds the process-wide engine options. Options are read
// far more often than they change, so access goes through a RWMutex-guarded
// snapshot rather than individual atomics.
package config

import (
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	// DefaultPageSize is the number of bytes per page (4KB).
	DefaultPageSize = 4096

	// DefaultBufferPoolCapacity is the number of pages resident at once.
	DefaultBufferPoolCapacity = 50

	// DefaultIOCostPerPage is the planner cost unit for one page read.
	DefaultIOCostPerPage = 1000

	// DefaultHistogramBuckets is the bucket count for column histograms.
	DefaultHistogramBuckets = 100
)

// Options describes the tunable engine parameters. The zero value is not
// usable; start from Defaults() or load a file.
type Options struct {
	PageSize           int `toml:"page_size"`
	BufferPoolCapacity int `toml:"buffer_pool_capacity"`
	IOCostPerPage      int `toml:"io_cost_per_page"`
	HistogramBuckets   int `toml:"histogram_buckets"`
}

// Defaults returns the built-in option values.
func Defaults() Options {
	return Options{
		PageSize:           DefaultPageSize,
		BufferPoolCapacity: DefaultBufferPoolCapacity,
		IOCostPerPage:      DefaultIOCostPerPage,
		HistogramBuckets:   DefaultHistogramBuckets,
	}
}

var (
	mu      sync.RWMutex
	current = Defaults()
)

// Set replaces the process-wide options after validating them.
func Set(opts Options) error {
	if err := validate(opts); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	current = opts
	return nil
}

// Load reads options from a TOML file and installs them process-wide.
// Keys absent from the file keep their default values.
func Load(path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to load config file %s", path)
	}

	opts := Defaults()
	if err := tree.Unmarshal(&opts); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return Set(opts)
}

// Reset restores the built-in defaults. Intended for test cleanup.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = Defaults()
}

// PageSize returns the number of bytes per page.
func PageSize() int {
	mu.RLock()
	defer mu.RUnlock()
	return current.PageSize
}

// SetPageSize overrides the page size. This exists for test fixtures only
// and must not be called while any buffer pool has resident pages.
func SetPageSize(n int) {
	mu.Lock()
	defer mu.Unlock()
	current.PageSize = n
}

// BufferPoolCapacity returns the maximum number of resident pages.
func BufferPoolCapacity() int {
	mu.RLock()
	defer mu.RUnlock()
	return current.BufferPoolCapacity
}

// SetBufferPoolCapacity overrides the buffer pool capacity. New capacity
// applies to pools created afterwards.
func SetBufferPoolCapacity(n int) {
	mu.Lock()
	defer mu.Unlock()
	current.BufferPoolCapacity = n
}

// IOCostPerPage returns the planner cost unit for a page read.
func IOCostPerPage() int {
	mu.RLock()
	defer mu.RUnlock()
	return current.IOCostPerPage
}

// HistogramBuckets returns the bucket count used for column histograms.
func HistogramBuckets() int {
	mu.RLock()
	defer mu.RUnlock()
	return current.HistogramBuckets
}

func validate(opts Options) error {
	if opts.PageSize <= 0 {
		return errors.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	if opts.BufferPoolCapacity <= 0 {
		return errors.Errorf("buffer pool capacity must be positive, got %d", opts.BufferPoolCapacity)
	}
	if opts.IOCostPerPage <= 0 {
		return errors.Errorf("io cost per page must be positive, got %d", opts.IOCostPerPage)
	}
	if opts.HistogramBuckets <= 0 {
		return errors.Errorf("histogram buckets must be positive, got %d", opts.HistogramBuckets)
	}
	return nil
}
