// Package transaction defines the hook passed to BPlusTree.Insert/Remove,
// Catalog.CreateTable/CreateIndex and the table heap's writes
// (Catalog.DropIndex takes none). Undo/redo logging and WAL are not
// implemented; Transaction is the seam that layer would plug into without
// changing any call site in buffer, index or catalog.
package transaction

import "sync/atomic"

// ID identifies a transaction.
type ID uint64

// Transaction is the hook threaded through BPlusTree and Catalog mutations.
type Transaction interface {
	// GetID returns the transaction's identifier.
	GetID() ID

	// MarkDirty records that the transaction dirtied pageID, a hook a redo
	// log would use to know which pages to force before commit.
	MarkDirty(pageID uint32)
}

var noopCounter uint64

type noop struct{ id ID }

// Noop returns a fresh no-op Transaction, used at every call site that
// needs "a transaction" but has no real transaction manager wired up.
func Noop() Transaction {
	id := atomic.AddUint64(&noopCounter, 1)
	return noop{id: ID(id)}
}

func (n noop) GetID() ID          { return n.id }
func (n noop) MarkDirty(_ uint32) {}
