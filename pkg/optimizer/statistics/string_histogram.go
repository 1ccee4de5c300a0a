package statistics

import (
	"tupledb/pkg/types"
)

// maxStringHash is the hash of "zzzz"; hashString clamps to it so that
// every string lands inside the histogram range.
const maxStringHash = 122 * (128*128*128 + 128*128 + 128 + 1)

// StringHistogram estimates selectivity for string columns by mapping each
// string deterministically into a bounded integer range and delegating to
// an IntHistogram over that range. The hash folds the first four bytes into
// a base-128 mixed integer; the exact constants only need determinism and a
// reasonable spread across buckets.
type StringHistogram struct {
	hist *IntHistogram
}

// NewStringHistogram creates a string histogram with the given bucket
// count.
func NewStringHistogram(bucketCount int) (*StringHistogram, error) {
	hist, err := NewIntHistogram(bucketCount, 0, maxStringHash)
	if err != nil {
		return nil, err
	}
	return &StringHistogram{hist: hist}, nil
}

// AddValue counts s into the histogram.
func (h *StringHistogram) AddValue(s string) {
	h.hist.AddValue(hashString(s))
}

// EstimateSelectivity predicts the fraction of counted strings satisfying
// "value op s". Like degrades to equality on the hashed value.
func (h *StringHistogram) EstimateSelectivity(op types.Predicate, s string) float64 {
	if op == types.Like {
		op = types.Equals
	}
	return h.hist.EstimateSelectivity(op, hashString(s))
}

// AvgSelectivity returns the average selectivity of the histogram.
func (h *StringHistogram) AvgSelectivity() float64 {
	return h.hist.AvgSelectivity()
}

// NumValues returns how many strings have been counted.
func (h *StringHistogram) NumValues() int {
	return h.hist.NumValues()
}

// hashString folds the first four bytes of s into a base-128 integer.
// Shorter strings are zero-extended, so "" maps to 0 and prefixes order
// consistently with their extensions. Bytes are masked to seven bits and
// the result clamped so every string lands in [0, maxStringHash].
func hashString(s string) int {
	v := 0
	for i := 0; i < 4; i++ {
		v *= 128
		if i < len(s) {
			v += int(s[i] & 0x7f)
		}
	}
	if v > maxStringHash {
		v = maxStringHash
	}
	return v
}
