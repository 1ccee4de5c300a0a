package heap

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// HeapPage is a fixed-size page holding equally sized tuple slots behind a
// bitmap header.
//
// On-disk layout:
//   - bytes [0, H): header bitmap, one bit per slot, LSB of byte 0 is slot 0
//   - bytes [H, pageSize): slot payloads, slot i at H + i*tupleSize
//
// H = ceil(slots/8) and slots = floor(pageSize*8 / (tupleSize*8 + 1)), so
// header and payloads always fit. Free slots keep their full payload width,
// zero-filled. A slot is occupied iff its header bit is set.
type HeapPage struct {
	pageID    tuple.PageID
	tupleDesc *tuple.TupleDescription
	numSlots  int
	used      []bool
	tuples    []*tuple.Tuple
	mutex     sync.RWMutex
}

// SlotsPerPage returns how many tuples of the given schema fit on one page
// under the current page size.
func SlotsPerPage(td *tuple.TupleDescription) int {
	return (page.Size() * 8) / (td.GetSize()*8 + 1)
}

// headerBytes returns the header length for the given slot count.
func headerBytes(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewEmptyHeapPage creates a heap page with every slot free.
func NewEmptyHeapPage(pid tuple.PageID, td *tuple.TupleDescription) *HeapPage {
	numSlots := SlotsPerPage(td)
	return &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		numSlots:  numSlots,
		used:      make([]bool, numSlots),
		tuples:    make([]*tuple.Tuple, numSlots),
	}
}

// NewHeapPage deserializes raw page bytes into a heap page.
func NewHeapPage(pid tuple.PageID, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.Size() {
		return nil, errors.Errorf("invalid page data size: expected %d, got %d", page.Size(), len(data))
	}

	hp := NewEmptyHeapPage(pid, td)
	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}
	return hp, nil
}

// ID returns the page identifier.
func (hp *HeapPage) ID() tuple.PageID {
	return hp.pageID
}

// GetTupleDesc returns the schema of the tuples on this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

// NumSlots returns the fixed slot capacity of this page.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// GetNumEmptySlots returns how many slots are currently free.
func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for _, u := range hp.used {
		if !u {
			empty++
		}
	}
	return empty
}

// IsSlotUsed reports whether the slot at idx holds a tuple.
func (hp *HeapPage) IsSlotUsed(idx int) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if idx < 0 || idx >= hp.numSlots {
		return false
	}
	return hp.used[idx]
}

// GetPageData serializes the page: header bitmap first, then every slot
// payload in ascending order, free slots zero-filled.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	data := make([]byte, page.Size())
	headerLen := headerBytes(hp.numSlots)
	tupleSize := hp.tupleDesc.GetSize()

	for i := 0; i < hp.numSlots; i++ {
		if !hp.used[i] {
			continue
		}
		data[i/8] |= 1 << (i % 8)

		offset := headerLen + i*tupleSize
		buf := bytes.NewBuffer(data[offset:offset])
		for j := 0; j < hp.tupleDesc.NumFields(); j++ {
			field, err := hp.tuples[i].GetField(j)
			if err != nil || field == nil {
				continue
			}
			_ = field.Serialize(buf)
		}
	}

	return data
}

// AddTuple places t into the first free slot and assigns its record id.
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return errors.Wrap(dberr.ErrInvalidArgument, "tuple schema does not match page schema")
	}

	for i := 0; i < hp.numSlots; i++ {
		if hp.used[i] {
			continue
		}
		hp.used[i] = true
		hp.tuples[i] = t
		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		return nil
	}

	return errors.Wrapf(dberr.ErrPageFull, "page %s", hp.pageID)
}

// DeleteTuple clears the slot named by t's record id.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if rid == nil {
		return errors.Wrap(dberr.ErrNoSuchTuple, "tuple has no record id")
	}
	if rid.PageID != hp.pageID {
		return errors.Wrapf(dberr.ErrNoSuchTuple, "tuple is on page %s, not %s", rid.PageID, hp.pageID)
	}
	if rid.TupleNum < 0 || rid.TupleNum >= hp.numSlots || !hp.used[rid.TupleNum] {
		return errors.Wrapf(dberr.ErrNoSuchTuple, "slot %d of page %s is empty", rid.TupleNum, hp.pageID)
	}

	hp.used[rid.TupleNum] = false
	hp.tuples[rid.TupleNum] = nil
	t.RecordID = nil
	return nil
}

// GetTuples returns the tuples of all occupied slots in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	result := make([]*tuple.Tuple, 0, hp.numSlots)
	for i, u := range hp.used {
		if u {
			result = append(result, hp.tuples[i])
		}
	}
	return result
}

// GetTupleAt returns the tuple at slot idx, or nil for a free slot.
func (hp *HeapPage) GetTupleAt(idx int) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if idx < 0 || idx >= hp.numSlots {
		return nil, errors.Errorf("slot index %d out of bounds [0, %d)", idx, hp.numSlots)
	}
	return hp.tuples[idx], nil
}

func (hp *HeapPage) parsePageData(data []byte) error {
	headerLen := headerBytes(hp.numSlots)
	tupleSize := hp.tupleDesc.GetSize()

	for i := 0; i < hp.numSlots; i++ {
		if data[i/8]&(1<<(i%8)) == 0 {
			continue
		}

		offset := headerLen + i*tupleSize
		t, err := readTuple(bytes.NewReader(data[offset:offset+tupleSize]), hp.tupleDesc)
		if err != nil {
			return errors.Wrapf(err, "failed to read tuple at slot %d of page %s", i, hp.pageID)
		}

		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		hp.used[i] = true
		hp.tuples[i] = t
	}
	return nil
}

func readTuple(r *bytes.Reader, td *tuple.TupleDescription) (*tuple.Tuple, error) {
	t := tuple.NewTuple(td)
	for j := 0; j < td.NumFields(); j++ {
		fieldType, err := td.TypeAtIndex(j)
		if err != nil {
			return nil, err
		}

		field, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}

		if err := t.SetField(j, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}
