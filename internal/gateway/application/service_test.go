package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/spotexchange/internal/protocol"
)

type fakeCommander struct {
	lastType protocol.CommandType
	lastData protocol.CommandData
	reply    protocol.Reply
	err      error
}

func (f *fakeCommander) Send(_ context.Context, cmdType protocol.CommandType, data protocol.CommandData) (protocol.Reply, error) {
	f.lastType = cmdType
	f.lastData = data
	return f.reply, f.err
}

func newTestService(engine *fakeCommander) *GatewayService {
	return NewGatewayService(engine, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustReply(t *testing.T, rt protocol.ReplyType, payload any) protocol.Reply {
	t.Helper()
	reply, err := protocol.NewReply(rt, payload)
	require.NoError(t, err)
	return reply
}

func TestPlaceOrderAccepted(t *testing.T) {
	engine := &fakeCommander{
		reply: mustReply(t, protocol.ReplyOrderPlaced, protocol.OrderPlacedPayload{
			OrderID:     "ord-1",
			ExecutedQty: "3",
			Fills:       []protocol.FillInfo{{TradeID: 7, Price: "100", Quantity: "3"}},
		}),
	}
	svc := newTestService(engine)

	result, err := svc.PlaceOrder(context.Background(), "TATA_INR", "101", "3", "buy", "alice")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "ord-1", result.Placed.OrderID)
	require.Len(t, result.Placed.Fills, 1)

	assert.Equal(t, protocol.CreateOrder, engine.lastType)
	assert.Equal(t, "TATA_INR", engine.lastData.Market)
	assert.Equal(t, "alice", engine.lastData.UserID)
}

func TestPlaceOrderRejected(t *testing.T) {
	engine := &fakeCommander{
		reply: mustReply(t, protocol.ReplyOrderCancelled, protocol.OrderCancelledPayload{
			ExecutedQty: "0", RemainingQty: "0",
		}),
	}
	svc := newTestService(engine)

	result, err := svc.PlaceOrder(context.Background(), "TATA_INR", "101", "3", "buy", "pauper")
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "0", result.Rejected.ExecutedQty)
}

func TestPlaceOrderEngineUnavailable(t *testing.T) {
	engine := &fakeCommander{err: errors.New("await reply: context deadline exceeded")}
	svc := newTestService(engine)

	_, err := svc.PlaceOrder(context.Background(), "TATA_INR", "101", "3", "buy", "alice")
	assert.Error(t, err)
}

func TestBalanceDecodesPayload(t *testing.T) {
	engine := &fakeCommander{
		reply: mustReply(t, protocol.ReplyBalance, protocol.BalancePayload{
			"INR": {Available: "900", Locked: "100"},
		}),
	}
	svc := newTestService(engine)

	payload, err := svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "900", payload["INR"].Available)
	assert.Equal(t, protocol.GetBalance, engine.lastType)
}

func TestUnexpectedReplyType(t *testing.T) {
	engine := &fakeCommander{
		reply: mustReply(t, protocol.ReplyDepth, protocol.DepthPayload{}),
	}
	svc := newTestService(engine)

	_, err := svc.Balance(context.Background(), "alice")
	assert.ErrorContains(t, err, "unexpected reply type")
}

func TestTradesWithoutQueryStore(t *testing.T) {
	svc := newTestService(&fakeCommander{})
	_, err := svc.RecentTrades(context.Background(), "TATA_INR", 10)
	assert.Error(t, err)
}
