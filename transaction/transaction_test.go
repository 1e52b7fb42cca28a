package transaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talondb/transaction"
)

func TestNoop_AssignsDistinctIDs(t *testing.T) {
	a := transaction.Noop()
	b := transaction.Noop()
	assert.NotEqual(t, a.GetID(), b.GetID())
}

func TestNoop_MarkDirtyIsHarmless(t *testing.T) {
	txn := transaction.Noop()
	assert.NotPanics(t, func() { txn.MarkDirty(42) })
}
