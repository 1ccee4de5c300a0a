// Package iterator defines the tuple-iterator contract between the storage
// engine and the query executor, plus a slice-backed implementation used by
// aggregator result sets.
package iterator

import (
	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/tuple"
)

// DbIterator is the contract all tuple iterators follow. Open must be
// called before HasNext/Next; Rewind restarts from the first tuple; a
// closed iterator can be reopened.
type DbIterator interface {
	Open() error

	HasNext() (bool, error)

	Next() (*tuple.Tuple, error)

	Rewind() error

	Close() error

	GetTupleDesc() *tuple.TupleDescription
}

// TupleIterator iterates over an in-memory slice of tuples.
type TupleIterator struct {
	tupleDesc *tuple.TupleDescription
	tuples    []*tuple.Tuple
	position  int
	isOpen    bool
}

func NewTupleIterator(td *tuple.TupleDescription, tuples []*tuple.Tuple) *TupleIterator {
	return &TupleIterator{
		tupleDesc: td,
		tuples:    tuples,
		position:  -1,
	}
}

func (it *TupleIterator) Open() error {
	it.position = -1
	it.isOpen = true
	return nil
}

func (it *TupleIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, errors.WithStack(dberr.ErrIteratorClosed)
	}
	return it.position+1 < len(it.tuples), nil
}

func (it *TupleIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, errors.New("no more tuples")
	}

	it.position++
	return it.tuples[it.position], nil
}

func (it *TupleIterator) Rewind() error {
	if !it.isOpen {
		return errors.WithStack(dberr.ErrIteratorClosed)
	}
	it.position = -1
	return nil
}

func (it *TupleIterator) Close() error {
	it.isOpen = false
	return nil
}

func (it *TupleIterator) GetTupleDesc() *tuple.TupleDescription {
	return it.tupleDesc
}
