package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/spotexchange/internal/dbwriter/domain"
	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
)

type fakeTradeRepo struct {
	upserts []*domain.Trade
}

func (f *fakeTradeRepo) Upsert(_ context.Context, trade *domain.Trade) error {
	f.upserts = append(f.upserts, trade)
	return nil
}

type orderUpsert struct {
	order   *domain.Order
	partial bool
}

type fakeOrderRepo struct {
	upserts []orderUpsert
}

func (f *fakeOrderRepo) Upsert(_ context.Context, order *domain.Order, partial bool) error {
	f.upserts = append(f.upserts, orderUpsert{order: order, partial: partial})
	return nil
}

func newTestWriter() (*Writer, *fakeTradeRepo, *fakeOrderRepo) {
	trades := &fakeTradeRepo{}
	orders := &fakeOrderRepo{}
	w := NewWriter(nil, trades, orders,
		metrics.New("dbwriter_test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return w, trades, orders
}

func mustEvent(t *testing.T, et protocol.EventType, data any) protocol.DBEvent {
	t.Helper()
	event, err := protocol.NewDBEvent(et, data)
	require.NoError(t, err)
	return event
}

func TestHandleTradeAdded(t *testing.T) {
	w, trades, _ := newTestWriter()

	event := mustEvent(t, protocol.EventTradeAdded, protocol.TradeAddedData{
		ID:            3,
		Market:        "TATA_INR",
		Price:         "100",
		Quantity:      "5",
		QuoteQuantity: "500",
		IsBuyerMaker:  true,
		Timestamp:     1700000000000,
	})
	require.NoError(t, w.Handle(context.Background(), event))

	require.Len(t, trades.upserts, 1)
	trade := trades.upserts[0]
	assert.Equal(t, "TATA_INR", trade.Market)
	assert.Equal(t, int64(3), trade.TradeID)
	assert.True(t, trade.Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, trade.IsBuyerMaker)
	assert.Equal(t, int64(1700000000000), trade.Timestamp.UnixMilli())
}

func TestHandleOrderUpdateFull(t *testing.T) {
	w, _, orders := newTestWriter()

	event := mustEvent(t, protocol.EventOrderUpdate, protocol.OrderUpdateData{
		OrderID:     "ord-1",
		ExecutedQty: "2",
		Market:      "TATA_INR",
		Price:       "50",
		Quantity:    "5",
		Side:        "buy",
	})
	require.NoError(t, w.Handle(context.Background(), event))

	require.Len(t, orders.upserts, 1)
	up := orders.upserts[0]
	assert.False(t, up.partial)
	assert.Equal(t, "ord-1", up.order.OrderID)
	assert.True(t, up.order.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestHandleOrderUpdatePartial(t *testing.T) {
	w, _, orders := newTestWriter()

	// maker 事件只带累计成交量
	event := mustEvent(t, protocol.EventOrderUpdate, protocol.OrderUpdateData{
		OrderID:     "ord-2",
		ExecutedQty: "3",
	})
	require.NoError(t, w.Handle(context.Background(), event))

	require.Len(t, orders.upserts, 1)
	up := orders.upserts[0]
	assert.True(t, up.partial)
	assert.True(t, up.order.ExecutedQty.Equal(decimal.NewFromInt(3)))
}

func TestHandleMalformedPayload(t *testing.T) {
	w, trades, _ := newTestWriter()

	event := protocol.DBEvent{Type: protocol.EventTradeAdded, Data: []byte(`{"price":"abc"}`)}
	assert.Error(t, w.Handle(context.Background(), event))
	assert.Empty(t, trades.upserts)
}

func TestHandleUnknownEventType(t *testing.T) {
	w, trades, orders := newTestWriter()

	event := protocol.DBEvent{Type: protocol.EventType("MYSTERY"), Data: []byte(`{}`)}
	assert.NoError(t, w.Handle(context.Background(), event))
	assert.Empty(t, trades.upserts)
	assert.Empty(t, orders.upserts)
}
