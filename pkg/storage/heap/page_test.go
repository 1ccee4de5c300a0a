package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tupledb/pkg/config"
	"tupledb/pkg/dberr"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

func intDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"value"})
	require.NoError(t, err)
	return td
}

func intTuple(t *testing.T, td *tuple.TupleDescription, v int32) *tuple.Tuple {
	t.Helper()
	tup := tuple.NewTuple(td)
	require.NoError(t, tup.SetField(0, types.NewIntField(v)))
	return tup
}

func TestSlotAndHeaderDerivation(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	// 128 bytes * 8 bits / (4 bytes * 8 bits + 1 header bit) = 31 slots,
	// needing a 4-byte header: 4 + 31*4 = 128 exactly.
	assert.Equal(t, 31, SlotsPerPage(td))

	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)
	assert.Equal(t, 31, hp.NumSlots())
	assert.Equal(t, 31, hp.GetNumEmptySlots())
}

func TestPageSerializationRoundTrip(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	pid := tuple.NewPageID(1, 0)
	hp := NewEmptyHeapPage(pid, td)

	for _, v := range []int32{1, 2, 3} {
		require.NoError(t, hp.AddTuple(intTuple(t, td, v)))
	}

	data := hp.GetPageData()
	require.Len(t, data, 128)

	reloaded, err := NewHeapPage(pid, data, td)
	require.NoError(t, err)

	for slot, want := range []int32{1, 2, 3} {
		assert.True(t, reloaded.IsSlotUsed(slot), "slot %d should be occupied", slot)
		tup, err := reloaded.GetTupleAt(slot)
		require.NoError(t, err)
		f, err := tup.GetField(0)
		require.NoError(t, err)
		assert.True(t, f.Equals(types.NewIntField(want)))
		assert.Equal(t, slot, tup.RecordID.TupleNum)
	}
	for slot := 3; slot < reloaded.NumSlots(); slot++ {
		assert.False(t, reloaded.IsSlotUsed(slot), "slot %d should be free", slot)
	}

	// Serialization is bit-exact for a clean round trip.
	assert.Equal(t, data, reloaded.GetPageData())
}

func TestHeaderBitmapLayout(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)

	require.NoError(t, hp.AddTuple(intTuple(t, td, 10))) // slot 0
	require.NoError(t, hp.AddTuple(intTuple(t, td, 20))) // slot 1

	data := hp.GetPageData()
	// LSB of byte 0 is slot 0; slot 1 is the next bit up.
	assert.Equal(t, byte(0b11), data[0])

	// Slot 0 payload sits right after the 4-byte header, big-endian.
	assert.Equal(t, []byte{0, 0, 0, 10}, data[4:8])
	assert.Equal(t, []byte{0, 0, 0, 20}, data[8:12])
}

func TestHeaderBitCountMatchesLiveTuples(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)

	tuples := make([]*tuple.Tuple, 5)
	for i := range tuples {
		tuples[i] = intTuple(t, td, int32(i))
		require.NoError(t, hp.AddTuple(tuples[i]))
	}
	require.NoError(t, hp.DeleteTuple(tuples[2]))

	data := hp.GetPageData()
	headerLen := (hp.NumSlots() + 7) / 8

	bits := 0
	for _, b := range data[:headerLen] {
		for ; b != 0; b &= b - 1 {
			bits++
		}
	}
	assert.Equal(t, 4, bits)
	assert.Equal(t, hp.NumSlots()-4, hp.GetNumEmptySlots())
}

func TestDeletedSlotIsReused(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)

	first := intTuple(t, td, 1)
	require.NoError(t, hp.AddTuple(first))
	require.NoError(t, hp.AddTuple(intTuple(t, td, 2)))
	require.NoError(t, hp.DeleteTuple(first))
	assert.Nil(t, first.RecordID)

	replacement := intTuple(t, td, 3)
	require.NoError(t, hp.AddTuple(replacement))
	assert.Equal(t, 0, replacement.RecordID.TupleNum)
}

func TestAddTupleToFullPage(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)

	for i := 0; i < hp.NumSlots(); i++ {
		require.NoError(t, hp.AddTuple(intTuple(t, td, int32(i))))
	}

	err := hp.AddTuple(intTuple(t, td, 99))
	assert.ErrorIs(t, err, dberr.ErrPageFull)
}

func TestAddTupleSchemaMismatch(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), intDesc(t))

	otherDesc, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.IntType}, nil)
	require.NoError(t, err)
	wrong := tuple.NewTuple(otherDesc)
	require.NoError(t, wrong.SetField(0, types.NewIntField(1)))
	require.NoError(t, wrong.SetField(1, types.NewIntField(2)))

	assert.ErrorIs(t, hp.AddTuple(wrong), dberr.ErrInvalidArgument)
}

func TestDeleteTupleErrors(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	td := intDesc(t)
	hp := NewEmptyHeapPage(tuple.NewPageID(1, 0), td)

	// No record id.
	err := hp.DeleteTuple(intTuple(t, td, 1))
	assert.ErrorIs(t, err, dberr.ErrNoSuchTuple)

	// Wrong page.
	other := intTuple(t, td, 2)
	other.RecordID = tuple.NewRecordID(tuple.NewPageID(1, 9), 0)
	assert.ErrorIs(t, hp.DeleteTuple(other), dberr.ErrNoSuchTuple)

	// Empty slot.
	stale := intTuple(t, td, 3)
	stale.RecordID = tuple.NewRecordID(tuple.NewPageID(1, 0), 5)
	assert.ErrorIs(t, hp.DeleteTuple(stale), dberr.ErrNoSuchTuple)
}

func TestNewHeapPageRejectsWrongSize(t *testing.T) {
	config.SetPageSize(128)
	t.Cleanup(config.Reset)

	_, err := NewHeapPage(tuple.NewPageID(1, 0), make([]byte, 64), intDesc(t))
	assert.Error(t, err)
}

func TestStringTuplePageRoundTrip(t *testing.T) {
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)

	pid := tuple.NewPageID(2, 0)
	hp := NewEmptyHeapPage(pid, td)

	tup := tuple.NewTuple(td)
	require.NoError(t, tup.SetField(0, types.NewIntField(7)))
	require.NoError(t, tup.SetField(1, types.NewStringField("alice", types.StringMaxSize)))
	require.NoError(t, hp.AddTuple(tup))

	reloaded, err := NewHeapPage(pid, hp.GetPageData(), td)
	require.NoError(t, err)

	got, err := reloaded.GetTupleAt(0)
	require.NoError(t, err)
	assert.True(t, tup.Equals(got))
}
