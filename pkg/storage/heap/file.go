package heap

import (
	"io"

	"github.com/pkg/errors"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/dberr"
	"tupledb/pkg/logging"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// HeapFile stores tuples of one schema as a flat sequence of heap pages in
// a single OS file. Page n lives at byte offset n*pageSize. It implements
// page.DbFile.
//
// Mutating operations and iteration fetch pages through the bound
// PageProvider so that every access happens under the transaction's page
// locks; only raw ReadPage/WritePage touch the disk directly.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
	pool      page.PageProvider
}

// NewHeapFile opens (creating if absent) the heap file at path. BindPool
// must be called before AddTuple, DeleteTuple, or Iterator are used.
func NewHeapFile(path string, td *tuple.TupleDescription) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(path)
	if err != nil {
		return nil, err
	}

	return &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
	}, nil
}

// BindPool attaches the buffer pool this file acquires pages through.
func (hf *HeapFile) BindPool(pool page.PageProvider) {
	hf.pool = pool
}

// GetTupleDesc returns the schema of tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads one page from disk. A read past the current end of file
// yields an empty page, which covers pages that were allocated but never
// written.
func (hf *HeapFile) ReadPage(pid tuple.PageID) (page.Page, error) {
	if pid.TableID != hf.GetID() {
		return nil, errors.Wrapf(dberr.ErrInvalidArgument,
			"page %s does not belong to table %d", pid, hf.GetID())
	}

	data, err := hf.ReadPageData(pid.PageNo)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return NewEmptyHeapPage(pid, hf.tupleDesc), nil
		}
		return nil, errors.Wrapf(err, "failed to read page %s", pid)
	}

	return NewHeapPage(pid, data, hf.tupleDesc)
}

// WritePage persists p at the offset given by its page number.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return errors.Wrap(dberr.ErrInvalidArgument, "page cannot be nil")
	}
	return hf.WritePageData(p.ID().PageNo, p.GetPageData())
}

// AddTuple inserts t into the first page with a free slot, walking pages in
// order under exclusive locks. If every existing page is full a new page is
// allocated at the end of the file. Returns the dirtied page.
func (hf *HeapFile) AddTuple(tid *transaction.TransactionID, t *tuple.Tuple) ([]page.Page, error) {
	if hf.pool == nil {
		return nil, errors.Wrap(dberr.ErrInvalidArgument, "heap file is not bound to a buffer pool")
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := 0; pageNo < numPages; pageNo++ {
		hp, err := hf.fetchPage(tid, pageNo, page.ReadWrite)
		if err != nil {
			return nil, err
		}

		if hp.GetNumEmptySlots() == 0 {
			continue
		}
		if err := hp.AddTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	// Every existing page is full (or the file is empty): extend the file
	// and insert into the fresh page.
	newPageNo, err := hf.AllocateNewPage()
	if err != nil {
		return nil, err
	}
	logging.WithComponent("HeapFile").
		WithField("table", hf.GetID()).
		WithField("page", newPageNo).
		Debug("allocated new page")

	hp, err := hf.fetchPage(tid, newPageNo, page.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := hp.AddTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{hp}, nil
}

// DeleteTuple clears the slot addressed by t's record id and returns the
// dirtied page.
func (hf *HeapFile) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) (page.Page, error) {
	if hf.pool == nil {
		return nil, errors.Wrap(dberr.ErrInvalidArgument, "heap file is not bound to a buffer pool")
	}
	if t == nil || t.RecordID == nil {
		return nil, errors.Wrap(dberr.ErrNoSuchTuple, "tuple has no record id")
	}

	hp, err := hf.fetchPage(tid, t.RecordID.PageID.PageNo, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator returns a lazy iterator over every tuple in the file, reading
// pages through the buffer pool under tid.
func (hf *HeapFile) Iterator(tid *transaction.TransactionID) page.DbFileIterator {
	return NewHeapFileIterator(hf, tid)
}

func (hf *HeapFile) fetchPage(tid *transaction.TransactionID, pageNo int, perm page.Permissions) (*HeapPage, error) {
	pg, err := hf.pool.GetPage(tid, tuple.NewPageID(hf.GetID(), pageNo), perm)
	if err != nil {
		return nil, err
	}

	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, errors.Errorf("page %d of table %d is not a heap page", pageNo, hf.GetID())
	}
	return hp, nil
}
