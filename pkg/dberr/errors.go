// Package dberr defines the error kinds shared across the storage engine.
// Components wrap these sentinels with github.com/pkg/errors so callers can
// match with errors.Is while still seeing operation context.
package dberr

import "github.com/pkg/errors"

var (
	// ErrTransactionAborted reports a lock-acquisition timeout or a
	// caller-requested abort. The caller must roll the transaction back.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrNoCleanPage reports that every cached page is dirty, so the
	// buffer pool cannot evict without violating NO-STEAL.
	ErrNoCleanPage = errors.New("no clean page to evict")

	// ErrPageFull reports an insert into a page with no empty slot.
	ErrPageFull = errors.New("page is full")

	// ErrNoSuchTuple reports a delete of a tuple whose slot is not occupied
	// or whose record id does not resolve.
	ErrNoSuchTuple = errors.New("no such tuple")

	// ErrIteratorClosed reports use of an iterator before Open or after
	// Close.
	ErrIteratorClosed = errors.New("iterator is not open")

	// ErrInvalidArgument reports a structurally invalid request, such as a
	// string aggregator constructed with an unsupported operator.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed reports an operation on a closed file or store.
	ErrClosed = errors.New("already closed")
)
