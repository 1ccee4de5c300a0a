package aggregation

import (
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// StringAggregator aggregates a string field. Only Count is meaningful for
// strings; any other operator is rejected at construction.
type StringAggregator struct {
	groupByField   int
	groupFieldType types.Type
	aggrField      int
	counts         map[string]int32
	groupFields    map[string]types.Field
	tupleDesc      *tuple.TupleDescription
	mutex          sync.RWMutex
}

// NewStringAggregator creates a string aggregator. op must be Count.
func NewStringAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*StringAggregator, error) {
	if op != Count {
		return nil, errors.Wrapf(dberr.ErrInvalidArgument,
			"string aggregator only supports count, got %v", op)
	}

	td, err := resultDesc(gbField, gbFieldType, Count)
	if err != nil {
		return nil, err
	}

	return &StringAggregator{
		groupByField:   gbField,
		groupFieldType: gbFieldType,
		aggrField:      aField,
		counts:         make(map[string]int32),
		groupFields:    make(map[string]types.Field),
		tupleDesc:      td,
	}, nil
}

func (sa *StringAggregator) GetTupleDesc() *tuple.TupleDescription {
	return sa.tupleDesc
}

// Merge counts one tuple into its group.
func (sa *StringAggregator) Merge(tup *tuple.Tuple) error {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	key, groupField, err := groupKey(tup, sa.groupByField)
	if err != nil {
		return errors.Wrap(err, "failed to get grouping field")
	}

	aggField, err := tup.GetField(sa.aggrField)
	if err != nil {
		return errors.Wrap(err, "failed to get aggregate field")
	}
	if _, ok := aggField.(*types.StringField); !ok {
		return errors.Errorf("aggregate field is not a string: %v", aggField.Type())
	}

	if _, exists := sa.counts[key]; !exists {
		sa.groupFields[key] = groupField
	}
	sa.counts[key]++
	return nil
}

// Iterator returns an iterator over the per-group counts.
func (sa *StringAggregator) Iterator() iterator.DbIterator {
	sa.mutex.RLock()
	defer sa.mutex.RUnlock()

	tuples := make([]*tuple.Tuple, 0, len(sa.counts))
	for key, count := range sa.counts {
		tup := tuple.NewTuple(sa.tupleDesc)
		if sa.groupByField == NoGrouping {
			_ = tup.SetField(0, types.NewIntField(count))
		} else {
			_ = tup.SetField(0, sa.groupFields[key])
			_ = tup.SetField(1, types.NewIntField(count))
		}
		tuples = append(tuples, tup)
	}

	return iterator.NewTupleIterator(sa.tupleDesc, tuples)
}
