// Package statistics provides the selectivity estimation machinery used by
// the query planner: fixed-width integer histograms, hashed string
// histograms, per-table column statistics, and a process-wide registry.
package statistics

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/types"
)

// IntHistogram is an equi-width histogram over a fixed integer range.
// Space and update time are constant in the number of values seen: only the
// per-bucket counts are kept, never the values themselves.
//
// The bucket width is ceil((max-min+1)/buckets) and the partial-bucket
// interpolation is done in floating point. The integral width keeps bucket
// boundaries aligned on whole values, which makes the complement pairs
// (EQ/NE, LT/GTE, GT/LTE) sum to exactly one. When the last bucket reaches
// past max, LT/GT interpolate over only its values up to max. Values outside [min, max] are
// dropped silently by AddValue; the selectivity formulas rely on every
// counted value landing in exactly one bucket.
type IntHistogram struct {
	buckets []int
	min     int
	max     int
	width   float64
	ntups   int
	mutex   sync.RWMutex
}

// NewIntHistogram creates a histogram with the given bucket count over the
// inclusive range [min, max].
func NewIntHistogram(bucketCount, min, max int) (*IntHistogram, error) {
	if bucketCount <= 0 {
		return nil, errors.Wrapf(dberr.ErrInvalidArgument, "bucket count must be positive, got %d", bucketCount)
	}
	if min > max {
		return nil, errors.Wrapf(dberr.ErrInvalidArgument, "min %d exceeds max %d", min, max)
	}

	// With more buckets than distinct values the width clamps to one value
	// per bucket and the trailing buckets simply stay empty.
	width := math.Ceil(float64(max-min+1) / float64(bucketCount))

	return &IntHistogram{
		buckets: make([]int, bucketCount),
		min:     min,
		max:     max,
		width:   width,
	}, nil
}

// AddValue counts v into its bucket. Values outside [min, max] are ignored.
func (h *IntHistogram) AddValue(v int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if v < h.min || v > h.max {
		return
	}
	h.buckets[h.bucketOf(v)]++
	h.ntups++
}

// EstimateSelectivity predicts the fraction of counted values satisfying
// "value op v".
func (h *IntHistogram) EstimateSelectivity(op types.Predicate, v int) float64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.estimate(op, v)
}

func (h *IntHistogram) estimate(op types.Predicate, v int) float64 {
	if h.ntups == 0 {
		return 0
	}

	switch op {
	case types.Equals:
		if v < h.min || v > h.max {
			return 0
		}
		b := h.bucketOf(v)
		return (float64(h.buckets[b]) / h.width) / float64(h.ntups)

	case types.GreaterThan:
		if v < h.min {
			return 1
		}
		if v > h.max {
			return 0
		}
		b := h.bucketOf(v)
		left := float64(h.min) + float64(b)*h.width
		right := math.Min(left+h.width-1, float64(h.max))
		sel := float64(h.buckets[b]) * (right - float64(v)) / (right - left + 1)
		for j := b + 1; j < len(h.buckets); j++ {
			sel += float64(h.buckets[j])
		}
		return sel / float64(h.ntups)

	case types.LessThan:
		if v > h.max {
			return 1
		}
		if v < h.min {
			return 0
		}
		b := h.bucketOf(v)
		left := float64(h.min) + float64(b)*h.width
		right := math.Min(left+h.width-1, float64(h.max))
		sel := float64(h.buckets[b]) * (float64(v) - left) / (right - left + 1)
		for j := 0; j < b; j++ {
			sel += float64(h.buckets[j])
		}
		return sel / float64(h.ntups)

	case types.NotEqual:
		return 1 - h.estimate(types.Equals, v)

	case types.GreaterThanOrEqual:
		return h.estimate(types.GreaterThan, v-1)

	case types.LessThanOrEqual:
		return h.estimate(types.LessThan, v+1)

	default:
		return 0
	}
}

// AvgSelectivity returns the average selectivity over all counted values,
// which is 1 whenever the histogram is non-empty.
func (h *IntHistogram) AvgSelectivity() float64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.ntups == 0 {
		return 0
	}

	sum := 0
	for _, count := range h.buckets {
		sum += count
	}
	return float64(sum) / float64(h.ntups)
}

// NumValues returns how many values have been counted.
func (h *IntHistogram) NumValues() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.ntups
}

// bucketOf maps an in-range value to its bucket index. Callers hold the
// mutex and guarantee min <= v <= max.
func (h *IntHistogram) bucketOf(v int) int {
	b := int(float64(v-h.min) / h.width)
	if b >= len(h.buckets) {
		b = len(h.buckets) - 1
	}
	return b
}

// String renders the per-bucket counts for debugging.
func (h *IntHistogram) String() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "IntHistogram(min=%d, max=%d, width=%.2f, ntups=%d)", h.min, h.max, h.width, h.ntups)
	for i, count := range h.buckets {
		fmt.Fprintf(&sb, " [%d:%d]", i, count)
	}
	return sb.String()
}
