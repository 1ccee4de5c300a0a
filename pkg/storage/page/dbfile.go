package page

import (
	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/tuple"
)

// DbFileIterator iterates over the tuples of a database file. Next fails
// with dberr.ErrIteratorClosed unless called between Open and Close.
type DbFileIterator interface {
	Open() error

	HasNext() (bool, error)

	Next() (*tuple.Tuple, error)

	// Rewind resets the iterator to the first tuple.
	Rewind() error

	Close() error
}

// DbFile is a disk-backed collection of pages storing tuples. It is the
// storage-side contract the buffer pool and statistics code build on.
type DbFile interface {
	// ReadPage fetches a page directly from disk. Callers normally go
	// through the buffer pool instead.
	ReadPage(pid tuple.PageID) (Page, error)

	// WritePage persists a page at the location given by its id.
	WritePage(p Page) error

	// AddTuple inserts t on behalf of tid and returns the pages it
	// modified.
	AddTuple(tid *transaction.TransactionID, t *tuple.Tuple) ([]Page, error)

	// DeleteTuple removes t, located by its record id, and returns the
	// modified page.
	DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) (Page, error)

	// Iterator returns a lazy iterator over all tuples, reading pages
	// through the buffer pool under tid.
	Iterator(tid *transaction.TransactionID) DbFileIterator

	// NumPages returns the current number of whole pages on disk.
	NumPages() (int, error)

	// GetID returns the stable table id of this file.
	GetID() int

	GetTupleDesc() *tuple.TupleDescription

	Close() error
}

// PageProvider hands out pages under transaction locking. The buffer pool
// implements it; heap files use it so that insert scans and iteration
// respect page locks.
type PageProvider interface {
	GetPage(tid *transaction.TransactionID, pid tuple.PageID, perm Permissions) (Page, error)
}
