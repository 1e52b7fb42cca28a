// Package concurrency defines the lock-manager hook threaded through
// catalog and index mutations. A real two-phase lock manager with
// deadlock detection is not implemented; LockManager is that seam, a
// pluggable dependency rather than something the tree or buffer pool
// reach into directly.
package concurrency

import (
	"talondb/common"
	"talondb/transaction"
)

// LockMode is the granularity of a logical (not physical/latch) lock a
// higher layer would take on a record before mutating it.
type LockMode int

const (
	Shared LockMode = iota
	Exclusive
)

// LockManager is consulted by catalog-level operations before they mutate
// table or index state. No-op by default.
type LockManager interface {
	Lock(txn transaction.Transaction, rid common.RID, mode LockMode) error
	Unlock(txn transaction.Transaction, rid common.RID) error
}

// NoLockManager grants every lock immediately and never blocks. It is the
// default LockManager wired by catalog.NewInMemCatalog; this layer is a
// hook, not an implementation.
type NoLockManager struct{}

func (NoLockManager) Lock(transaction.Transaction, common.RID, LockMode) error { return nil }
func (NoLockManager) Unlock(transaction.Transaction, common.RID) error         { return nil }
