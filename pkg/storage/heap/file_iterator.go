package heap

import (
	"github.com/pkg/errors"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/dberr"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// HeapFileIterator lazily walks all tuples of a heap file, one page at a
// time, skipping empty pages. Pages are fetched through the buffer pool
// with read-only permission under the iterator's transaction.
type HeapFileIterator struct {
	file        *HeapFile
	tid         *transaction.TransactionID
	currentPage int
	pageIter    *HeapPageIterator
	isOpen      bool
}

func NewHeapFileIterator(file *HeapFile, tid *transaction.TransactionID) *HeapFileIterator {
	return &HeapFileIterator{
		file:        file,
		tid:         tid,
		currentPage: -1,
	}
}

// Open positions the iterator before the first tuple.
func (it *HeapFileIterator) Open() error {
	it.currentPage = -1
	it.pageIter = nil
	it.isOpen = true
	return it.moveToNextPage()
}

// HasNext reports whether another tuple is available.
func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, errors.WithStack(dberr.ErrIteratorClosed)
	}

	if it.pageIter == nil {
		return false, nil
	}

	hasNext, err := it.pageIter.HasNext()
	if err != nil {
		return false, err
	}
	if hasNext {
		return true, nil
	}

	if err := it.moveToNextPage(); err != nil {
		return false, err
	}
	if it.pageIter == nil {
		return false, nil
	}
	return it.pageIter.HasNext()
}

// Next returns the next tuple. It fails with dberr.ErrIteratorClosed if the
// iterator was never opened or has been closed.
func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	if !it.isOpen {
		return nil, errors.WithStack(dberr.ErrIteratorClosed)
	}

	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, errors.New("no more tuples")
	}

	return it.pageIter.Next()
}

// Rewind restarts the iteration from the first tuple.
func (it *HeapFileIterator) Rewind() error {
	if !it.isOpen {
		return errors.WithStack(dberr.ErrIteratorClosed)
	}
	return it.Open()
}

// Close releases iterator state. The iterator can be reused via Open.
func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		_ = it.pageIter.Close()
		it.pageIter = nil
	}
	it.isOpen = false
	return nil
}

// moveToNextPage advances to the next page that holds at least one tuple,
// leaving pageIter nil when the file is exhausted.
func (it *HeapFileIterator) moveToNextPage() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}

	for {
		it.currentPage++
		if it.currentPage >= numPages {
			it.pageIter = nil
			return nil
		}

		hp, err := it.file.fetchPage(it.tid, it.currentPage, page.ReadOnly)
		if err != nil {
			return err
		}

		pageIter := NewHeapPageIterator(hp)
		if err := pageIter.Open(); err != nil {
			return err
		}

		hasNext, err := pageIter.HasNext()
		if err != nil {
			return err
		}
		if hasNext {
			it.pageIter = pageIter
			return nil
		}
	}
}
