package heap

import (
	"github.com/pkg/errors"

	"tupledb/pkg/tuple"
)

// HeapPageIterator walks the occupied slots of a single heap page.
type HeapPageIterator struct {
	page         *HeapPage
	tuples       []*tuple.Tuple
	currentIndex int
}

func NewHeapPageIterator(page *HeapPage) *HeapPageIterator {
	return &HeapPageIterator{
		page:         page,
		currentIndex: -1,
	}
}

func (it *HeapPageIterator) Open() error {
	it.tuples = it.page.GetTuples()
	it.currentIndex = -1
	return nil
}

func (it *HeapPageIterator) HasNext() (bool, error) {
	return it.currentIndex+1 < len(it.tuples), nil
}

func (it *HeapPageIterator) Next() (*tuple.Tuple, error) {
	hasNext, _ := it.HasNext()
	if !hasNext {
		return nil, errors.New("no more tuples")
	}

	it.currentIndex++
	return it.tuples[it.currentIndex], nil
}

func (it *HeapPageIterator) Rewind() error {
	return it.Open()
}

func (it *HeapPageIterator) Close() error {
	it.tuples = nil
	it.currentIndex = -1
	return nil
}
