package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newOrder(id, userID string, side Side, price, qty string) *Order {
	return &Order{
		OrderID:  id,
		UserID:   userID,
		Side:     side,
		Price:    dec(price),
		Quantity: dec(qty),
	}
}

func TestAddOrderPriceTimePriority(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)

	// 到达顺序：101 先挂，两个 100 后挂
	book.AddOrder(newOrder("a1", "alice", SideSell, "101", "5"))
	book.AddOrder(newOrder("a2", "bob", SideSell, "100", "5"))
	book.AddOrder(newOrder("a3", "carol", SideSell, "100", "5"))

	taker := newOrder("b1", "dave", SideBuy, "102", "12")
	executed, fills := book.AddOrder(taker)

	require.Len(t, fills, 3)
	assert.True(t, executed.Equal(dec("12")))

	// 先吃价格更优的 100，同价位按到达顺序
	assert.Equal(t, "a2", fills[0].MakerOrderID)
	assert.True(t, fills[0].Price.Equal(dec("100")))
	assert.Equal(t, "a3", fills[1].MakerOrderID)
	assert.True(t, fills[1].Price.Equal(dec("100")))
	assert.Equal(t, "a1", fills[2].MakerOrderID)
	assert.True(t, fills[2].Price.Equal(dec("101")))
	assert.True(t, fills[2].Quantity.Equal(dec("2")))

	// a1 剩 3 留在卖盘
	_, asks := book.Depth()
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Price.Equal(dec("101")))
	assert.True(t, asks[0].Quantity.Equal(dec("3")))
}

func TestAddOrderTradeIDsMonotonic(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("a1", "alice", SideSell, "99", "1"))
	book.AddOrder(newOrder("a2", "alice", SideSell, "99", "1"))

	_, fills := book.AddOrder(newOrder("b1", "bob", SideBuy, "100", "2"))
	require.Len(t, fills, 2)
	assert.Equal(t, int64(1), fills[0].TradeID)
	assert.Equal(t, int64(2), fills[1].TradeID)
	assert.Equal(t, int64(2), book.LastTradeID())
	assert.True(t, book.LastTradePrice().Equal(dec("99")))
}

func TestBuyTakerRequiresStrictlyBetterAsk(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("a1", "alice", SideSell, "100", "5"))

	// 买价等于卖价不成交，订单挂入买盘
	executed, fills := book.AddOrder(newOrder("b1", "bob", SideBuy, "100", "5"))
	assert.True(t, executed.IsZero())
	assert.Empty(t, fills)

	bids, asks := book.Depth()
	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	assert.True(t, bids[0].Price.Equal(dec("100")))
}

func TestSellTakerMatchesEqualBid(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("b1", "alice", SideBuy, "100", "5"))

	executed, fills := book.AddOrder(newOrder("s1", "bob", SideSell, "100", "5"))
	require.Len(t, fills, 1)
	assert.True(t, executed.Equal(dec("5")))
	assert.True(t, fills[0].Price.Equal(dec("100")))
	assert.Equal(t, 0, book.RestingOrders())
}

func TestPartialFillRestsRemainder(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("a1", "alice", SideSell, "99", "3"))

	executed, fills := book.AddOrder(newOrder("b1", "bob", SideBuy, "100", "5"))
	require.Len(t, fills, 1)
	assert.True(t, executed.Equal(dec("3")))
	assert.True(t, fills[0].Price.Equal(dec("99")))

	bids, asks := book.Depth()
	assert.Empty(t, asks)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Price.Equal(dec("100")))
	assert.True(t, bids[0].Quantity.Equal(dec("2")))
}

func TestSelfTradeSkippedScanContinues(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("a1", "alice", SideSell, "100", "5"))
	book.AddOrder(newOrder("a2", "bob", SideSell, "101", "5"))

	// alice 的买单跳过自己 100 的卖单，继续吃 bob 的 101
	executed, fills := book.AddOrder(newOrder("b1", "alice", SideBuy, "102", "8"))
	require.Len(t, fills, 1)
	assert.Equal(t, "a2", fills[0].MakerOrderID)
	assert.True(t, executed.Equal(dec("5")))

	// 自己的卖单原样保留，剩余 3 挂入买盘
	bids, asks := book.Depth()
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Price.Equal(dec("100")))
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Quantity.Equal(dec("3")))
}

func TestDepthAggregatesLevels(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("b1", "alice", SideBuy, "50", "3"))
	book.AddOrder(newOrder("b2", "bob", SideBuy, "50", "4"))
	book.AddOrder(newOrder("b3", "carol", SideBuy, "49", "1"))
	book.AddOrder(newOrder("a1", "dave", SideSell, "52", "2"))
	book.AddOrder(newOrder("a2", "erin", SideSell, "51", "2"))

	bids, asks := book.Depth()
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(dec("50")))
	assert.True(t, bids[0].Quantity.Equal(dec("7")))
	assert.True(t, bids[1].Price.Equal(dec("49")))

	// 卖盘升序
	require.Len(t, asks, 2)
	assert.True(t, asks[0].Price.Equal(dec("51")))
	assert.True(t, asks[1].Price.Equal(dec("52")))
}

func TestCancelRemovesOrder(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("b1", "alice", SideBuy, "50", "3"))

	order, found := book.Cancel("b1")
	require.True(t, found)
	assert.Equal(t, "alice", order.UserID)
	assert.Equal(t, 0, book.RestingOrders())

	_, found = book.Cancel("b1")
	assert.False(t, found)
}

func TestLevelQuantity(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("b1", "alice", SideBuy, "50", "3"))
	book.AddOrder(newOrder("b2", "bob", SideBuy, "50", "4"))

	assert.True(t, book.LevelQuantity(SideBuy, dec("50")).Equal(dec("7")))
	assert.True(t, book.LevelQuantity(SideBuy, dec("49")).IsZero())
	assert.True(t, book.LevelQuantity(SideSell, dec("50")).IsZero())
}

func TestOpenOrdersFiltersByUser(t *testing.T) {
	book := NewOrderBook("TATA", "INR", decimal.Zero)
	book.AddOrder(newOrder("b1", "alice", SideBuy, "50", "3"))
	book.AddOrder(newOrder("a1", "alice", SideSell, "60", "2"))
	book.AddOrder(newOrder("b2", "bob", SideBuy, "49", "1"))

	orders := book.OpenOrders("alice")
	require.Len(t, orders, 2)
	assert.Empty(t, book.OpenOrders("carol"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	book := NewOrderBook("TATA", "INR", dec("1000"))
	book.AddOrder(newOrder("a1", "alice", SideSell, "99", "2"))
	book.AddOrder(newOrder("b1", "bob", SideBuy, "100", "5"))
	book.AddOrder(newOrder("b2", "carol", SideBuy, "98", "1"))

	snap := book.Snapshot()
	restored := NewOrderBookFromSnapshot(snap)

	assert.Equal(t, book.Ticker(), restored.Ticker())
	assert.Equal(t, book.LastTradeID(), restored.LastTradeID())
	assert.True(t, book.LastTradePrice().Equal(restored.LastTradePrice()))

	wantBids, wantAsks := book.Depth()
	gotBids, gotAsks := restored.Depth()
	assert.Equal(t, wantBids, gotBids)
	assert.Equal(t, wantAsks, gotAsks)

	// 快照是深拷贝，改动恢复出的簿不影响原簿
	restored.AddOrder(newOrder("s1", "dave", SideSell, "100", "5"))
	assert.Equal(t, book.LastTradeID()+1, restored.LastTradeID())

	sameBids, sameAsks := book.Depth()
	assert.Equal(t, wantBids, sameBids)
	assert.Equal(t, wantAsks, sameAsks)
}
