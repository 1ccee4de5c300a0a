// Package memory implements the buffer pool: a bounded, transaction-aware
// page cache enforcing two-phase locking, LRU eviction of clean pages only
// (NO-STEAL), write-back on commit, and restore-from-disk rollback on abort.
package memory

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"tupledb/pkg/concurrency/lock"
	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/config"
	"tupledb/pkg/dberr"
	"tupledb/pkg/logging"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// LockTimeout bounds how long one GetPage call may wait for a page lock.
// Each call draws a uniform budget in [0, LockTimeout); expiry aborts the
// transaction. The randomization breaks symmetric deadlocks, though it can
// livelock under heavy contention; a wait-for graph is the upgrade path.
const LockTimeout = 200 * time.Millisecond

const maxBackoff = 10 * time.Millisecond

// TableSource resolves table ids to their database files. The catalog
// implements it.
type TableSource interface {
	GetDbFile(tableID int) (page.DbFile, error)
}

// PageStore is the buffer pool. All page access flows through GetPage,
// which acquires the page lock before touching the cache. Mutating
// directory operations serialize on the store's own mutex; lock
// acquisition deliberately happens outside it so that waiters do not block
// cache traffic.
type PageStore struct {
	mutex       sync.Mutex
	cache       *LRUPageCache
	lockManager *lock.LockManager
	tables      TableSource
	capacity    int
}

// NewPageStore creates a buffer pool over the given catalog with capacity
// taken from the process configuration.
func NewPageStore(tables TableSource) *PageStore {
	capacity := config.BufferPoolCapacity()
	return &PageStore{
		cache:       NewLRUPageCache(capacity),
		lockManager: lock.NewLockManager(),
		tables:      tables,
		capacity:    capacity,
	}
}

// LockManager exposes the pool's lock table, mainly for tests asserting the
// two-phase property.
func (p *PageStore) LockManager() *lock.LockManager {
	return p.lockManager
}

// GetPage returns the page pid pinned in the cache, locked for tid under
// perm: a shared lock for ReadOnly, exclusive for ReadWrite. On a miss the
// page is read through the owning file, evicting the least recently used
// clean page if the pool is full.
func (p *PageStore) GetPage(tid *transaction.TransactionID, pid tuple.PageID, perm page.Permissions) (page.Page, error) {
	if tid == nil {
		return nil, errors.Wrap(dberr.ErrInvalidArgument, "transaction id cannot be nil")
	}

	if err := p.acquireLock(tid, pid, perm); err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if pg, exists := p.cache.Get(pid); exists {
		return pg, nil
	}

	if p.cache.Size() >= p.capacity {
		if err := p.evictPage(); err != nil {
			return nil, err
		}
	}

	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err != nil {
		return nil, errors.Wrapf(err, "table %d not found", pid.TableID)
	}

	pg, err := dbFile.ReadPage(pid)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read page %s", pid)
	}

	if err := p.cache.Put(pid, pg); err != nil {
		return nil, errors.Wrapf(err, "failed to cache page %s", pid)
	}
	return pg, nil
}

// acquireLock spins on the non-blocking lock manager with exponential
// back-off until the lock is granted or the randomized budget expires.
func (p *PageStore) acquireLock(tid *transaction.TransactionID, pid tuple.PageID, perm page.Permissions) error {
	mode := lock.Shared
	if perm == page.ReadWrite {
		mode = lock.Exclusive
	}

	deadline := time.Now().Add(time.Duration(rand.Int63n(int64(LockTimeout))))
	backoff := time.Millisecond

	for !p.lockManager.Acquire(tid, pid, mode) {
		if time.Now().After(deadline) {
			return errors.Wrapf(dberr.ErrTransactionAborted,
				"%s timed out waiting for %s lock on %s", tid, mode, pid)
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
	return nil
}

// evictPage removes the least recently used clean page from the cache.
// Dirty pages are never evicted (NO-STEAL), so eviction never writes to
// disk; if every page is dirty the caller's operation fails.
func (p *PageStore) evictPage() error {
	victim, found := p.cache.EvictCandidate()
	if !found {
		return errors.Wrap(dberr.ErrNoCleanPage, "buffer pool full")
	}
	p.cache.Remove(victim)
	return nil
}

// InsertTuple adds t to the given table on behalf of tid, marking every
// page the heap file touched as dirtied by tid.
func (p *PageStore) InsertTuple(tid *transaction.TransactionID, tableID int, t *tuple.Tuple) error {
	dbFile, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return errors.Wrapf(err, "table %d not found", tableID)
	}

	modifiedPages, err := dbFile.AddTuple(tid, t)
	if err != nil {
		return errors.Wrap(err, "failed to add tuple")
	}

	return p.markPagesDirty(tid, modifiedPages)
}

// DeleteTuple removes t, located by its record id, marking the modified
// page as dirtied by tid.
func (p *PageStore) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return errors.Wrap(dberr.ErrNoSuchTuple, "tuple has no record id")
	}

	tableID := t.RecordID.PageID.TableID
	dbFile, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return errors.Wrapf(err, "table %d not found", tableID)
	}

	modifiedPage, err := dbFile.DeleteTuple(tid, t)
	if err != nil {
		return errors.Wrap(err, "failed to delete tuple")
	}

	return p.markPagesDirty(tid, []page.Page{modifiedPage})
}

func (p *PageStore) markPagesDirty(tid *transaction.TransactionID, pages []page.Page) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pg := range pages {
		pid := pg.ID()
		if _, resident := p.cache.Get(pid); !resident {
			if p.cache.Size() >= p.capacity {
				if err := p.evictPage(); err != nil {
					return err
				}
			}
			if err := p.cache.Put(pid, pg); err != nil {
				return errors.Wrapf(err, "failed to cache page %s", pid)
			}
		}
		p.cache.MarkDirty(pid, tid)
	}
	return nil
}

// TransactionComplete finishes tid. On commit every page it dirtied is
// written through the owning file and marked clean; on abort every such
// page is re-read from disk, which holds the pre-transaction image because
// dirty pages are never evicted. All of tid's locks are then released, so
// locking is two-phase. Completing an unknown or already-completed
// transaction is a no-op.
func (p *PageStore) TransactionComplete(tid *transaction.TransactionID, commit bool) error {
	if tid == nil {
		return errors.Wrap(dberr.ErrInvalidArgument, "transaction id cannot be nil")
	}

	p.mutex.Lock()
	var firstErr error
	for _, pid := range p.cache.DirtyPages(tid) {
		var err error
		if commit {
			err = p.flushPage(pid)
		} else {
			p.restorePage(pid)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.mutex.Unlock()

	// Locks are released even if a flush failed, so the transaction never
	// holds the page hostage.
	p.lockManager.ReleaseAll(tid)
	return firstErr
}

// CommitTransaction flushes tid's dirty pages and releases its locks.
func (p *PageStore) CommitTransaction(tid *transaction.TransactionID) error {
	return p.TransactionComplete(tid, true)
}

// AbortTransaction rolls back tid's changes and releases its locks.
func (p *PageStore) AbortTransaction(tid *transaction.TransactionID) error {
	return p.TransactionComplete(tid, false)
}

// flushPage writes pid through its file if dirty, then clears the marker.
// Callers hold p.mutex.
func (p *PageStore) flushPage(pid tuple.PageID) error {
	pg, exists := p.cache.Get(pid)
	if !exists || p.cache.Dirtier(pid) == nil {
		return nil
	}

	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err != nil {
		return errors.Wrapf(err, "table for page %s not found", pid)
	}

	if err := dbFile.WritePage(pg); err != nil {
		return errors.Wrapf(err, "failed to flush page %s", pid)
	}

	p.cache.MarkClean(pid)
	return nil
}

// restorePage replaces the cached copy of pid with the on-disk image,
// keeping the same cache entry. Read failures are logged and swallowed: the
// stale copy is dropped instead, and the abort proceeds to release locks.
// Callers hold p.mutex.
func (p *PageStore) restorePage(pid tuple.PageID) {
	if _, exists := p.cache.Get(pid); !exists {
		return
	}

	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err == nil {
		var fresh page.Page
		fresh, err = dbFile.ReadPage(pid)
		if err == nil {
			p.cache.Replace(pid, fresh)
			p.cache.MarkClean(pid)
			return
		}
	}

	logging.WithComponent("PageStore").
		WithField("page", pid.String()).
		WithError(err).
		Error("failed to restore page during abort, discarding cached copy")
	p.cache.Remove(pid)
}

// FlushAllPages writes every dirty page to disk. Administrative; normal
// write-back happens at commit.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range p.cache.PageIDs() {
		if err := p.flushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// FlushPage writes the named page if dirty and clears its marker.
func (p *PageStore) FlushPage(pid tuple.PageID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.flushPage(pid)
}

// DiscardPage drops the named page from the cache without writing it.
func (p *PageStore) DiscardPage(pid tuple.PageID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(pid)
}

// CachedPages returns the number of resident pages.
func (p *PageStore) CachedPages() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.cache.Size()
}

// Close flushes all dirty pages and empties the cache.
func (p *PageStore) Close() error {
	if err := p.FlushAllPages(); err != nil {
		return errors.Wrap(err, "failed to flush pages during shutdown")
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Clear()
	return nil
}
