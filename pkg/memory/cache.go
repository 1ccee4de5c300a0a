package memory

import (
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// node is one cache entry in the doubly linked LRU list. The entry, not the
// page, carries dirty ownership: page bytes on disk never hold transactional
// metadata.
type node struct {
	pid     tuple.PageID
	page    page.Page
	dirtier *transaction.TransactionID
	prev    *node
	next    *node
}

// LRUPageCache is a bounded page cache with O(1) lookup and recency updates:
// a map into a doubly linked list with dummy head (most recent) and tail
// (least recent) nodes. It never evicts on its own; when full, Put returns
// an error and the page store picks a victim via EvictCandidate.
type LRUPageCache struct {
	maxSize int
	cache   map[tuple.PageID]*node
	head    *node
	tail    *node
	mutex   sync.Mutex
}

func NewLRUPageCache(maxSize int) *LRUPageCache {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &LRUPageCache{
		maxSize: maxSize,
		cache:   make(map[tuple.PageID]*node),
		head:    head,
		tail:    tail,
	}
}

// Get returns the cached page and marks it most recently used.
func (c *LRUPageCache) Get(pid tuple.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, exists := c.cache[pid]
	if !exists {
		return nil, false
	}
	c.moveToFront(n)
	return n.page, true
}

// Put inserts a page (most recently used) or refreshes an existing entry.
// Inserting into a full cache fails; the caller must evict first.
func (c *LRUPageCache) Put(pid tuple.PageID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		n.page = p
		c.moveToFront(n)
		return nil
	}

	if len(c.cache) >= c.maxSize {
		return errors.New("cache full, cannot add page")
	}

	n := &node{pid: pid, page: p}
	c.cache[pid] = n
	c.addToFront(n)
	return nil
}

// Replace swaps the page value of an existing entry without touching its
// recency position or dirty marker. Used by abort to install the re-read
// disk image under the same cache key.
func (c *LRUPageCache) Replace(pid tuple.PageID, p page.Page) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, exists := c.cache[pid]
	if !exists {
		return false
	}
	n.page = p
	return true
}

// Remove drops the entry for pid, if present.
func (c *LRUPageCache) Remove(pid tuple.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		delete(c.cache, pid)
		c.removeNode(n)
	}
}

// Size returns the number of cached pages.
func (c *LRUPageCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.cache)
}

// PageIDs returns all cached page ids, least recently used first.
func (c *LRUPageCache) PageIDs() []tuple.PageID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pids := make([]tuple.PageID, 0, len(c.cache))
	for n := c.tail.prev; n != c.head; n = n.prev {
		pids = append(pids, n.pid)
	}
	return pids
}

// MarkDirty records tid as the owner of pending modifications to pid.
func (c *LRUPageCache) MarkDirty(pid tuple.PageID, tid *transaction.TransactionID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		n.dirtier = tid
	}
}

// MarkClean clears the dirty marker on pid.
func (c *LRUPageCache) MarkClean(pid tuple.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		n.dirtier = nil
	}
}

// Dirtier returns the transaction that dirtied pid, or nil if the page is
// clean or absent.
func (c *LRUPageCache) Dirtier(pid tuple.PageID) *transaction.TransactionID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		return n.dirtier
	}
	return nil
}

// DirtyPages returns the ids of every page dirtied by tid.
func (c *LRUPageCache) DirtyPages(tid *transaction.TransactionID) []tuple.PageID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var pids []tuple.PageID
	for n := c.tail.prev; n != c.head; n = n.prev {
		if n.dirtier != nil && n.dirtier.Equals(tid) {
			pids = append(pids, n.pid)
		}
	}
	return pids
}

// EvictCandidate returns the least recently used clean page. The NO-STEAL
// policy lives here: dirty entries are never candidates, and if every entry
// is dirty there is no candidate at all.
func (c *LRUPageCache) EvictCandidate() (tuple.PageID, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for n := c.tail.prev; n != c.head; n = n.prev {
		if n.dirtier == nil {
			return n.pid, true
		}
	}
	return tuple.PageID{}, false
}

// Clear empties the cache.
func (c *LRUPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[tuple.PageID]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *LRUPageCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUPageCache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUPageCache) moveToFront(n *node) {
	c.removeNode(n)
	c.addToFront(n)
}
