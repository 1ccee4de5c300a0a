package statistics

import (
	"math"

	"github.com/pkg/errors"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/config"
	"tupledb/pkg/database"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// TableStats holds one histogram per column of a table plus the scan-cost
// inputs the planner needs.
type TableStats struct {
	tableID       int
	ioCostPerPage int
	totalTuples   int
	numPages      int
	tupleDesc     *tuple.TupleDescription
	intHists      map[int]*IntHistogram
	strHists      map[int]*StringHistogram
}

// NewTableStats computes statistics for one table with two full scans under
// a fresh transaction: the first pass finds each int column's [min, max]
// and the tuple count, the second fills the histograms. The scan
// transaction is committed afterwards so its page locks are released.
func NewTableStats(db *database.Database, tableID int, ioCostPerPage int) (*TableStats, error) {
	dbFile, err := db.Catalog().GetDbFile(tableID)
	if err != nil {
		return nil, err
	}

	ts := &TableStats{
		tableID:       tableID,
		ioCostPerPage: ioCostPerPage,
		tupleDesc:     dbFile.GetTupleDesc(),
		intHists:      make(map[int]*IntHistogram),
		strHists:      make(map[int]*StringHistogram),
	}

	tid := transaction.NewTransactionID()
	defer func() {
		_ = db.Store().CommitTransaction(tid)
	}()

	if err := ts.scan(dbFile, tid); err != nil {
		return nil, err
	}

	ts.numPages, err = dbFile.NumPages()
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TableStats) scan(dbFile page.DbFile, tid *transaction.TransactionID) error {
	numFields := ts.tupleDesc.NumFields()
	mins := make([]int, numFields)
	maxs := make([]int, numFields)
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	// Pass 1: per-int-column bounds and the total tuple count.
	iter := dbFile.Iterator(tid)
	if err := iter.Open(); err != nil {
		return err
	}
	defer func() { _ = iter.Close() }()

	err := forEachTuple(iter, func(t *tuple.Tuple) error {
		ts.totalTuples++
		for i := 0; i < numFields; i++ {
			v, ok, err := intFieldValue(t, i)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			mins[i] = min(mins[i], v)
			maxs[i] = max(maxs[i], v)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ts.totalTuples == 0 {
		return nil
	}

	buckets := config.HistogramBuckets()
	for i := 0; i < numFields; i++ {
		fieldType, err := ts.tupleDesc.TypeAtIndex(i)
		if err != nil {
			return err
		}

		switch fieldType {
		case types.IntType:
			hist, err := NewIntHistogram(buckets, mins[i], maxs[i])
			if err != nil {
				return err
			}
			ts.intHists[i] = hist
		case types.StringType:
			hist, err := NewStringHistogram(buckets)
			if err != nil {
				return err
			}
			ts.strHists[i] = hist
		}
	}

	// Pass 2: fill the histograms.
	if err := iter.Rewind(); err != nil {
		return err
	}
	return forEachTuple(iter, func(t *tuple.Tuple) error {
		for i := 0; i < numFields; i++ {
			field, err := t.GetField(i)
			if err != nil {
				return err
			}

			switch f := field.(type) {
			case *types.IntField:
				ts.intHists[i].AddValue(int(f.Value))
			case *types.StringField:
				ts.strHists[i].AddValue(f.Value)
			}
		}
		return nil
	})
}

// EstimateScanCost returns the cost of a full sequential scan: one IO cost
// unit per page.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * float64(ts.ioCostPerPage)
}

// EstimateTableCardinality returns the expected number of tuples a
// predicate of the given selectivity keeps.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int {
	return int(float64(ts.totalTuples) * selectivity)
}

// TotalTuples returns the number of tuples counted by the scan.
func (ts *TableStats) TotalTuples() int {
	return ts.totalTuples
}

// EstimateSelectivity predicts the fraction of the table where
// "field op constant" holds, dispatching on the column type.
func (ts *TableStats) EstimateSelectivity(field int, op types.Predicate, constant types.Field) (float64, error) {
	switch c := constant.(type) {
	case *types.IntField:
		hist, exists := ts.intHists[field]
		if !exists {
			return 0, errors.Errorf("no int histogram for field %d of table %d", field, ts.tableID)
		}
		return hist.EstimateSelectivity(op, int(c.Value)), nil

	case *types.StringField:
		hist, exists := ts.strHists[field]
		if !exists {
			return 0, errors.Errorf("no string histogram for field %d of table %d", field, ts.tableID)
		}
		return hist.EstimateSelectivity(op, c.Value), nil

	default:
		return 0, errors.Errorf("unsupported constant type %T", constant)
	}
}

// AvgSelectivity returns the column's average histogram selectivity,
// independent of op.
func (ts *TableStats) AvgSelectivity(field int, op types.Predicate) (float64, error) {
	if hist, exists := ts.intHists[field]; exists {
		return hist.AvgSelectivity(), nil
	}
	if hist, exists := ts.strHists[field]; exists {
		return hist.AvgSelectivity(), nil
	}
	return 0, errors.Errorf("no histogram for field %d of table %d", field, ts.tableID)
}

func forEachTuple(iter page.DbFileIterator, fn func(*tuple.Tuple) error) error {
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		t, err := iter.Next()
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

func intFieldValue(t *tuple.Tuple, i int) (int, bool, error) {
	field, err := t.GetField(i)
	if err != nil {
		return 0, false, err
	}
	if f, ok := field.(*types.IntField); ok {
		return int(f.Value), true, nil
	}
	return 0, false, nil
}
