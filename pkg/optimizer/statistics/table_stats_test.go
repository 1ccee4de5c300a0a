package statistics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/config"
	"tupledb/pkg/database"
	"tupledb/pkg/storage/heap"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// newStatsDB builds a database with one (id INT, name STRING) table holding
// rows (i, names[i%len]) for i in [0, rows).
func newStatsDB(t *testing.T, tableName string, rows int) (*database.Database, int) {
	t.Helper()

	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)

	hf, err := heap.NewHeapFile(filepath.Join(t.TempDir(), tableName+".dat"), td)
	require.NoError(t, err)

	db := database.NewDatabase()
	require.NoError(t, db.AddTable(hf, tableName))
	t.Cleanup(func() { _ = db.Close() })

	names := []string{"alice", "bob", "carol"}
	tid := transaction.NewTransactionID()
	for i := 0; i < rows; i++ {
		tup := tuple.NewTuple(td)
		require.NoError(t, tup.SetField(0, types.NewIntField(int32(i))))
		require.NoError(t, tup.SetField(1, types.NewStringField(names[i%len(names)], types.StringMaxSize)))
		require.NoError(t, db.Store().InsertTuple(tid, hf.GetID(), tup))
	}
	require.NoError(t, db.Store().CommitTransaction(tid))
	return db, hf.GetID()
}

func TestTableStatsScanCost(t *testing.T) {
	db, tableID := newStatsDB(t, "costs", 100)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	dbFile, err := db.Catalog().GetDbFile(tableID)
	require.NoError(t, err)
	numPages, err := dbFile.NumPages()
	require.NoError(t, err)

	assert.Equal(t, float64(numPages*1000), ts.EstimateScanCost())
	assert.Positive(t, ts.EstimateScanCost())
}

func TestTableStatsCardinality(t *testing.T) {
	db, tableID := newStatsDB(t, "card", 100)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	assert.Equal(t, 100, ts.TotalTuples())
	assert.Equal(t, 100, ts.EstimateTableCardinality(1.0))
	assert.Equal(t, 50, ts.EstimateTableCardinality(0.5))
	assert.Equal(t, 12, ts.EstimateTableCardinality(0.125))
	assert.Zero(t, ts.EstimateTableCardinality(0))
}

func TestTableStatsIntSelectivity(t *testing.T) {
	db, tableID := newStatsDB(t, "ints", 100)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	// ids are uniform over [0, 99].
	sel, err := ts.EstimateSelectivity(0, types.GreaterThan, types.NewIntField(49))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sel, 0.05)

	sel, err = ts.EstimateSelectivity(0, types.Equals, types.NewIntField(10))
	require.NoError(t, err)
	assert.InDelta(t, 0.01, sel, 0.005)

	sel, err = ts.EstimateSelectivity(0, types.LessThan, types.NewIntField(0))
	require.NoError(t, err)
	assert.Zero(t, sel)
}

func TestTableStatsStringSelectivity(t *testing.T) {
	db, tableID := newStatsDB(t, "strs", 99)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	// Every name sorts after "aaaa" and before "zzzz".
	sel, err := ts.EstimateSelectivity(1, types.GreaterThan, types.NewStringField("aaaa", types.StringMaxSize))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sel, 0.05)

	sel, err = ts.EstimateSelectivity(1, types.LessThan, types.NewStringField("aaaa", types.StringMaxSize))
	require.NoError(t, err)
	assert.InDelta(t, 0, sel, 0.05)

	// Equality over the huge hashed range is a density estimate: tiny but
	// larger for a name that actually occurs than for one that does not.
	present, err := ts.EstimateSelectivity(1, types.Equals, types.NewStringField("alice", types.StringMaxSize))
	require.NoError(t, err)
	absent, err := ts.EstimateSelectivity(1, types.Equals, types.NewStringField("zzzz", types.StringMaxSize))
	require.NoError(t, err)
	assert.Greater(t, present, absent)
	assert.GreaterOrEqual(t, absent, 0.0)
}

func TestTableStatsSelectivityTypeDispatch(t *testing.T) {
	db, tableID := newStatsDB(t, "dispatch", 10)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	// Int constant against the string column has no histogram to consult.
	_, err = ts.EstimateSelectivity(1, types.Equals, types.NewIntField(1))
	assert.Error(t, err)

	_, err = ts.EstimateSelectivity(0, types.Equals, types.NewStringField("x", types.StringMaxSize))
	assert.Error(t, err)
}

func TestTableStatsAvgSelectivity(t *testing.T) {
	db, tableID := newStatsDB(t, "avg", 50)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	for _, field := range []int{0, 1} {
		sel, err := ts.AvgSelectivity(field, types.Equals)
		require.NoError(t, err)
		assert.Equal(t, 1.0, sel)
	}

	_, err = ts.AvgSelectivity(5, types.Equals)
	assert.Error(t, err)
}

func TestTableStatsEmptyTable(t *testing.T) {
	db, tableID := newStatsDB(t, "empty", 0)

	ts, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	assert.Zero(t, ts.TotalTuples())
	assert.Zero(t, ts.EstimateScanCost())
	assert.Zero(t, ts.EstimateTableCardinality(1.0))
}

func TestTableStatsReleasesScanLocks(t *testing.T) {
	db, tableID := newStatsDB(t, "locks", 20)

	_, err := NewTableStats(db, tableID, 1000)
	require.NoError(t, err)

	// The statistics scan committed its transaction, so a writer can take
	// exclusive page locks immediately.
	tid := transaction.NewTransactionID()
	td, err := db.Catalog().GetTupleDesc(tableID)
	require.NoError(t, err)
	tup := tuple.NewTuple(td)
	require.NoError(t, tup.SetField(0, types.NewIntField(999)))
	require.NoError(t, tup.SetField(1, types.NewStringField("dave", types.StringMaxSize)))
	require.NoError(t, db.Store().InsertTuple(tid, tableID, tup))
	require.NoError(t, db.Store().CommitTransaction(tid))
}

func TestRegistryComputeStatistics(t *testing.T) {
	db, _ := newStatsDB(t, "reg_table", 30)

	reg := NewRegistry()
	require.NoError(t, reg.ComputeStatistics(db))

	ts, exists := reg.Get("reg_table")
	require.True(t, exists)
	assert.Equal(t, 30, ts.TotalTuples())
	assert.Equal(t, float64(config.IOCostPerPage()), ts.EstimateScanCost()/float64(statsNumPages(t, db, "reg_table")))

	_, exists = reg.Get("missing")
	assert.False(t, exists)
}

func TestRegistrySetAndGet(t *testing.T) {
	reg := NewRegistry()
	_, exists := reg.Get("t")
	require.False(t, exists)

	reg.Set("t", &TableStats{totalTuples: 3})
	ts, exists := reg.Get("t")
	require.True(t, exists)
	assert.Equal(t, 3, ts.TotalTuples())
}

func statsNumPages(t *testing.T, db *database.Database, name string) int {
	t.Helper()
	id, err := db.Catalog().GetTableID(name)
	require.NoError(t, err)
	f, err := db.Catalog().GetDbFile(id)
	require.NoError(t, err)
	n, err := f.NumPages()
	require.NoError(t, err)
	return n
}
