// Package aggregation implements streaming grouped aggregation over tuples
// fed one at a time by the query executor.
package aggregation

import (
	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// NoGrouping is the group-by field index meaning "aggregate everything into
// a single group".
const NoGrouping = -1

// noGroupingKey is the internal map key for the single group when no
// grouping field is configured.
const noGroupingKey = "NO_GROUPING"

// AggregateOp selects the aggregate computed over each group.
type AggregateOp int

const (
	Min AggregateOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggregateOp) String() string {
	switch op {
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	case Avg:
		return "avg"
	case Count:
		return "count"
	default:
		return "unknown"
	}
}

// Aggregator consumes tuples one at a time and exposes the accumulated
// results as an iterator of either (aggregateValue) or
// (groupValue, aggregateValue) tuples. Emission order is unspecified.
type Aggregator interface {
	// Merge folds one input tuple into the running aggregate.
	Merge(tup *tuple.Tuple) error

	// Iterator returns an iterator over the current results.
	Iterator() iterator.DbIterator

	// GetTupleDesc describes the result tuples.
	GetTupleDesc() *tuple.TupleDescription
}

// resultDesc builds the result schema shared by the aggregator kinds.
func resultDesc(gbField int, gbFieldType types.Type, op AggregateOp) (*tuple.TupleDescription, error) {
	if gbField == NoGrouping {
		return tuple.NewTupleDesc(
			[]types.Type{types.IntType},
			[]string{op.String()},
		)
	}

	return tuple.NewTupleDesc(
		[]types.Type{gbFieldType, types.IntType},
		[]string{"group", op.String()},
	)
}

// groupKey renders the grouping field of tup into the map key for its
// group, also returning the field for emission. With no grouping the key is
// constant and the field nil.
func groupKey(tup *tuple.Tuple, gbField int) (string, types.Field, error) {
	if gbField == NoGrouping {
		return noGroupingKey, nil, nil
	}

	field, err := tup.GetField(gbField)
	if err != nil {
		return "", nil, err
	}
	return field.String(), field, nil
}
