package iterator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tupledb/pkg/dberr"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

func makeTuples(t *testing.T, values ...int32) (*tuple.TupleDescription, []*tuple.Tuple) {
	t.Helper()

	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, nil)
	require.NoError(t, err)

	tuples := make([]*tuple.Tuple, len(values))
	for i, v := range values {
		tuples[i] = tuple.NewTuple(td)
		require.NoError(t, tuples[i].SetField(0, types.NewIntField(v)))
	}
	return td, tuples
}

func TestTupleIteratorYieldsInOrder(t *testing.T) {
	td, tuples := makeTuples(t, 1, 2, 3)
	it := NewTupleIterator(td, tuples)
	require.NoError(t, it.Open())

	for _, want := range []int32{1, 2, 3} {
		hasNext, err := it.HasNext()
		require.NoError(t, err)
		require.True(t, hasNext)

		tup, err := it.Next()
		require.NoError(t, err)
		f, err := tup.GetField(0)
		require.NoError(t, err)
		assert.True(t, f.Equals(types.NewIntField(want)))
	}

	hasNext, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, hasNext)
	_, err = it.Next()
	assert.Error(t, err)
}

func TestTupleIteratorRequiresOpen(t *testing.T) {
	td, tuples := makeTuples(t, 1)
	it := NewTupleIterator(td, tuples)

	_, err := it.HasNext()
	assert.ErrorIs(t, err, dberr.ErrIteratorClosed)
	_, err = it.Next()
	assert.ErrorIs(t, err, dberr.ErrIteratorClosed)
	assert.ErrorIs(t, it.Rewind(), dberr.ErrIteratorClosed)
}

func TestTupleIteratorRewind(t *testing.T) {
	td, tuples := makeTuples(t, 1, 2)
	it := NewTupleIterator(td, tuples)
	require.NoError(t, it.Open())

	_, err := it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Rewind())

	tup, err := it.Next()
	require.NoError(t, err)
	f, err := tup.GetField(0)
	require.NoError(t, err)
	assert.True(t, f.Equals(types.NewIntField(1)))
}

func TestTupleIteratorCloseAndReopen(t *testing.T) {
	td, tuples := makeTuples(t, 1)
	it := NewTupleIterator(td, tuples)
	require.NoError(t, it.Open())
	require.NoError(t, it.Close())

	_, err := it.Next()
	assert.ErrorIs(t, err, dberr.ErrIteratorClosed)

	require.NoError(t, it.Open())
	hasNext, err := it.HasNext()
	require.NoError(t, err)
	assert.True(t, hasNext)
}

func TestTupleIteratorEmpty(t *testing.T) {
	td, _ := makeTuples(t, 1)
	it := NewTupleIterator(td, nil)
	require.NoError(t, it.Open())

	hasNext, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, hasNext)
	assert.Same(t, td, it.GetTupleDesc())
}
