package aggregation

import (
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// intAggState is the running aggregate of one group. For Avg both sum and
// count are tracked and the integer quotient is emitted.
type intAggState struct {
	value int32
	sum   int32
	count int32
}

// IntegerAggregator aggregates an int field with COUNT, SUM, MIN, MAX, or
// AVG, optionally grouped by another field.
type IntegerAggregator struct {
	groupByField   int
	groupFieldType types.Type
	aggrField      int
	op             AggregateOp
	groups         map[string]*intAggState
	groupFields    map[string]types.Field
	tupleDesc      *tuple.TupleDescription
	mutex          sync.RWMutex
}

// NewIntegerAggregator creates an integer aggregator. gbField is the index
// of the grouping field or NoGrouping; aField is the index of the
// aggregated int field.
func NewIntegerAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*IntegerAggregator, error) {
	td, err := resultDesc(gbField, gbFieldType, op)
	if err != nil {
		return nil, err
	}

	return &IntegerAggregator{
		groupByField:   gbField,
		groupFieldType: gbFieldType,
		aggrField:      aField,
		op:             op,
		groups:         make(map[string]*intAggState),
		groupFields:    make(map[string]types.Field),
		tupleDesc:      td,
	}, nil
}

func (ia *IntegerAggregator) GetTupleDesc() *tuple.TupleDescription {
	return ia.tupleDesc
}

// Merge folds one tuple into its group's running aggregate.
func (ia *IntegerAggregator) Merge(tup *tuple.Tuple) error {
	ia.mutex.Lock()
	defer ia.mutex.Unlock()

	key, groupField, err := groupKey(tup, ia.groupByField)
	if err != nil {
		return errors.Wrap(err, "failed to get grouping field")
	}

	aggField, err := tup.GetField(ia.aggrField)
	if err != nil {
		return errors.Wrap(err, "failed to get aggregate field")
	}
	intField, ok := aggField.(*types.IntField)
	if !ok {
		return errors.Errorf("aggregate field is not an integer: %v", aggField.Type())
	}

	state, exists := ia.groups[key]
	if !exists {
		state = &intAggState{}
		ia.groups[key] = state
		ia.groupFields[key] = groupField
	}

	v := intField.Value
	switch ia.op {
	case Min:
		if !exists || v < state.value {
			state.value = v
		}
	case Max:
		if !exists || v > state.value {
			state.value = v
		}
	case Sum:
		state.value += v
	case Count:
		state.value++
	case Avg:
		state.sum += v
		state.count++
	default:
		return errors.Errorf("unsupported operation: %v", ia.op)
	}
	return nil
}

// Iterator returns an iterator over the aggregate results computed so far.
func (ia *IntegerAggregator) Iterator() iterator.DbIterator {
	ia.mutex.RLock()
	defer ia.mutex.RUnlock()

	tuples := make([]*tuple.Tuple, 0, len(ia.groups))
	for key, state := range ia.groups {
		result := state.value
		if ia.op == Avg {
			result = state.sum / state.count
		}

		tup := tuple.NewTuple(ia.tupleDesc)
		if ia.groupByField == NoGrouping {
			_ = tup.SetField(0, types.NewIntField(result))
		} else {
			_ = tup.SetField(0, ia.groupFields[key])
			_ = tup.SetField(1, types.NewIntField(result))
		}
		tuples = append(tuples, tup)
	}

	return iterator.NewTupleIterator(ia.tupleDesc, tuples)
}
