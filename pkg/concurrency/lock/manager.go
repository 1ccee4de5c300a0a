// Package lock implements page-level shared/exclusive locking for
// transactions. The manager itself never blocks: Acquire reports whether the
// lock was granted, and the buffer pool layers its own retry-with-timeout
// policy on top.
package lock

import (
	"sync"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/tuple"
)

// Mode is the lock strength held on a page.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// record is one granted lock: which transaction holds the page and how.
type record struct {
	tid  *transaction.TransactionID
	mode Mode
}

// LockManager maps each page to the ordered list of lock records granted on
// it. All public operations serialize on a single mutex.
type LockManager struct {
	mutex sync.Mutex
	table map[tuple.PageID][]record
}

func NewLockManager() *LockManager {
	return &LockManager{
		table: make(map[tuple.PageID][]record),
	}
}

// Acquire attempts to take a lock without blocking. It returns true if the
// lock is granted (including idempotent re-grants and in-place upgrades) and
// false if the request conflicts with another holder.
//
// Grant rules:
//   - no holders: grant
//   - sole holder is tid: upgrade in place if shared->exclusive, else
//     idempotent grant
//   - sole holder is another transaction: grant only shared-on-shared
//   - multiple holders (all shared): grant only shared requests
func (lm *LockManager) Acquire(tid *transaction.TransactionID, pid tuple.PageID, mode Mode) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	locks := lm.table[pid]
	switch len(locks) {
	case 0:
		lm.table[pid] = append(locks, record{tid: tid, mode: mode})
		return true

	case 1:
		holder := locks[0]
		if holder.tid.Equals(tid) {
			if holder.mode == Shared && mode == Exclusive {
				locks[0].mode = Exclusive
			}
			return true
		}
		if holder.mode == Shared && mode == Shared {
			lm.table[pid] = append(locks, record{tid: tid, mode: Shared})
			return true
		}
		return false

	default:
		// More than one holder implies every lock is shared.
		if mode != Shared {
			return false
		}
		for _, l := range locks {
			if l.tid.Equals(tid) {
				return true
			}
		}
		lm.table[pid] = append(locks, record{tid: tid, mode: Shared})
		return true
	}
}

// Release drops tid's lock on pid, if any.
func (lm *LockManager) Release(tid *transaction.TransactionID, pid tuple.PageID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.releaseLocked(tid, pid)
}

// ReleaseAll drops every lock held by tid. Called at transaction completion
// so that two-phase locking holds.
func (lm *LockManager) ReleaseAll(tid *transaction.TransactionID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for pid := range lm.table {
		lm.releaseLocked(tid, pid)
	}
}

// Holds reports whether tid holds any lock on pid.
func (lm *LockManager) Holds(tid *transaction.TransactionID, pid tuple.PageID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for _, l := range lm.table[pid] {
		if l.tid.Equals(tid) {
			return true
		}
	}
	return false
}

// HoldsAny reports whether tid holds a lock on any page.
func (lm *LockManager) HoldsAny(tid *transaction.TransactionID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for _, locks := range lm.table {
		for _, l := range locks {
			if l.tid.Equals(tid) {
				return true
			}
		}
	}
	return false
}

// ModeOf returns the mode of tid's lock on pid, if held.
func (lm *LockManager) ModeOf(tid *transaction.TransactionID, pid tuple.PageID) (Mode, bool) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for _, l := range lm.table[pid] {
		if l.tid.Equals(tid) {
			return l.mode, true
		}
	}
	return Shared, false
}

func (lm *LockManager) releaseLocked(tid *transaction.TransactionID, pid tuple.PageID) {
	locks, exists := lm.table[pid]
	if !exists {
		return
	}

	remaining := locks[:0]
	for _, l := range locks {
		if !l.tid.Equals(tid) {
			remaining = append(remaining, l)
		}
	}

	if len(remaining) == 0 {
		delete(lm.table, pid)
	} else {
		lm.table[pid] = remaining
	}
}
