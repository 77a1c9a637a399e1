package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/spotexchange/internal/exchange/domain"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	repo, err := NewSnapshotRepository(path)
	require.NoError(t, err)

	book := domain.NewOrderBook("TATA", "INR", decimal.NewFromInt(1000))
	book.AddOrder(&domain.Order{
		OrderID:  "b1",
		UserID:   "alice",
		Side:     domain.SideBuy,
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(2),
	})

	snap := &domain.EngineSnapshot{
		TakenAt:    time.Now().UTC(),
		OrderBooks: []domain.OrderBookSnapshot{book.Snapshot()},
		Ledger: []domain.LedgerEntry{
			{UserID: "alice", Asset: "INR", Available: decimal.NewFromInt(900), Locked: decimal.NewFromInt(100)},
		},
	}
	require.NoError(t, repo.Save(context.Background(), snap))

	loaded, found, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)

	require.Len(t, loaded.OrderBooks, 1)
	restored := domain.NewOrderBookFromSnapshot(loaded.OrderBooks[0])
	assert.Equal(t, "TATA_INR", restored.Ticker())
	assert.Equal(t, 1, restored.RestingOrders())
	assert.True(t, restored.LastTradePrice().Equal(decimal.NewFromInt(1000)))

	require.Len(t, loaded.Ledger, 1)
	assert.True(t, loaded.Ledger[0].Locked.Equal(decimal.NewFromInt(100)))
}

func TestLoadMissingFile(t *testing.T) {
	repo, err := NewSnapshotRepository(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)

	_, found, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	repo, err := NewSnapshotRepository(path)
	require.NoError(t, err)

	first := &domain.EngineSnapshot{TakenAt: time.Unix(1, 0)}
	second := &domain.EngineSnapshot{TakenAt: time.Unix(2, 0)}
	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	loaded, found, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, loaded.TakenAt.Equal(second.TakenAt))

	// 临时文件不残留
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
