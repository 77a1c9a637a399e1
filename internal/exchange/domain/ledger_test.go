package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerLockAndRelease(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", "INR", dec("1000"))

	require.NoError(t, l.Lock("alice", "INR", dec("600")))
	bal := l.Balance("alice", "INR")
	assert.True(t, bal.Available.Equal(dec("400")))
	assert.True(t, bal.Locked.Equal(dec("600")))

	// 余额不足时不做任何修改
	err := l.Lock("alice", "INR", dec("500"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	bal = l.Balance("alice", "INR")
	assert.True(t, bal.Available.Equal(dec("400")))
	assert.True(t, bal.Locked.Equal(dec("600")))

	require.NoError(t, l.Release("alice", "INR", dec("600")))
	bal = l.Balance("alice", "INR")
	assert.True(t, bal.Available.Equal(dec("1000")))
	assert.True(t, bal.Locked.IsZero())
}

func TestLedgerLockUnknownUserOrAsset(t *testing.T) {
	l := NewLedger()
	assert.ErrorIs(t, l.Lock("ghost", "INR", dec("1")), ErrInsufficientFunds)

	l.Credit("alice", "INR", dec("10"))
	assert.ErrorIs(t, l.Lock("alice", "TATA", dec("1")), ErrInsufficientFunds)
}

func TestLedgerReleaseGuards(t *testing.T) {
	l := NewLedger()
	assert.ErrorIs(t, l.Release("ghost", "INR", dec("1")), ErrBalanceNotFound)

	l.Credit("alice", "INR", dec("10"))
	require.NoError(t, l.Lock("alice", "INR", dec("5")))
	assert.ErrorIs(t, l.Release("alice", "INR", dec("6")), ErrInsufficientLocked)

	// 零额解冻是空操作
	assert.NoError(t, l.Release("ghost", "INR", dec("0")))
}

func TestSettleFillTransfersBothSides(t *testing.T) {
	l := NewLedger()
	l.Credit("buyer", "INR", dec("1000"))
	l.Credit("seller", "TATA", dec("10"))

	// 买方 taker：冻结计价资产，卖方 maker：冻结基础资产
	require.NoError(t, l.Lock("buyer", "INR", dec("500")))
	require.NoError(t, l.Lock("seller", "TATA", dec("5")))

	require.NoError(t, l.SettleFill("buyer", "seller", "TATA", "INR", dec("5"), dec("100"), SideBuy))

	buyerINR := l.Balance("buyer", "INR")
	assert.True(t, buyerINR.Available.Equal(dec("500")))
	assert.True(t, buyerINR.Locked.IsZero())
	assert.True(t, l.Balance("buyer", "TATA").Available.Equal(dec("5")))

	sellerTATA := l.Balance("seller", "TATA")
	assert.True(t, sellerTATA.Available.Equal(dec("5")))
	assert.True(t, sellerTATA.Locked.IsZero())
	assert.True(t, l.Balance("seller", "INR").Available.Equal(dec("500")))
}

func TestSettleFillSellTaker(t *testing.T) {
	l := NewLedger()
	l.Credit("maker", "INR", dec("300"))
	l.Credit("taker", "TATA", dec("3"))

	// 卖方 taker：对手方 maker 是买方
	require.NoError(t, l.Lock("maker", "INR", dec("300")))
	require.NoError(t, l.Lock("taker", "TATA", dec("3")))

	require.NoError(t, l.SettleFill("taker", "maker", "TATA", "INR", dec("3"), dec("100"), SideSell))

	assert.True(t, l.Balance("taker", "INR").Available.Equal(dec("300")))
	assert.True(t, l.Balance("maker", "TATA").Available.Equal(dec("3")))
	assert.True(t, l.Balance("maker", "INR").Locked.IsZero())
	assert.True(t, l.Balance("taker", "TATA").Locked.IsZero())
}

func TestSettleFillConservesSupply(t *testing.T) {
	l := NewLedger()
	l.Credit("buyer", "INR", dec("1000"))
	l.Credit("seller", "TATA", dec("10"))

	require.NoError(t, l.Lock("buyer", "INR", dec("400")))
	require.NoError(t, l.Lock("seller", "TATA", dec("4")))
	require.NoError(t, l.SettleFill("buyer", "seller", "TATA", "INR", dec("4"), dec("100"), SideBuy))

	assert.True(t, l.TotalSupply("INR").Equal(dec("1000")))
	assert.True(t, l.TotalSupply("TATA").Equal(dec("10")))
}

func TestSettleFillInsufficientLocked(t *testing.T) {
	l := NewLedger()
	l.Credit("buyer", "INR", dec("100"))
	l.Credit("seller", "TATA", dec("1"))

	err := l.SettleFill("buyer", "seller", "TATA", "INR", dec("1"), dec("100"), SideBuy)
	assert.ErrorIs(t, err, ErrInsufficientLocked)
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", "INR", dec("100"))
	l.Credit("alice", "TATA", dec("5"))
	l.Credit("bob", "INR", dec("50"))
	require.NoError(t, l.Lock("alice", "INR", dec("30")))

	entries := l.Snapshot()
	require.Len(t, entries, 3)
	// 按 (userID, asset) 排序
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, "INR", entries[0].Asset)
	assert.Equal(t, "bob", entries[2].UserID)

	restored := NewLedgerFromSnapshot(entries)
	bal := restored.Balance("alice", "INR")
	assert.True(t, bal.Available.Equal(dec("70")))
	assert.True(t, bal.Locked.Equal(dec("30")))
	assert.True(t, restored.TotalSupply("INR").Equal(l.TotalSupply("INR")))
}
