// Package transaction provides transaction identity. A TransactionID exists
// from creation until the buffer pool completes it with commit or abort.
package transaction

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter int64

// TransactionID identifies one transaction. IDs are process-unique and
// monotonically increasing.
type TransactionID struct {
	id int64
}

func NewTransactionID() *TransactionID {
	return &TransactionID{
		id: atomic.AddInt64(&transactionCounter, 1),
	}
}

func (tid *TransactionID) ID() int64 {
	return tid.id
}

func (tid *TransactionID) String() string {
	return fmt.Sprintf("TID-%d", tid.id)
}

func (tid *TransactionID) Equals(other *TransactionID) bool {
	if tid == nil || other == nil {
		return tid == other
	}
	return tid.id == other.id
}
