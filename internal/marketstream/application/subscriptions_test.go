package application

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wyfcoding/spotexchange/pkg/metrics"
)

type fakeSubscriber struct {
	id       string
	received [][]byte
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(_ string, payload []byte) {
	f.received = append(f.received, payload)
}

func newTestManager() *SubscriptionManager {
	return NewSubscriptionManager(
		metrics.New("marketstream_test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	m := newTestManager()
	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}

	m.Subscribe(a, "depth@TATA_INR")
	m.Subscribe(b, "depth@TATA_INR")
	m.Subscribe(b, "trade@TATA_INR")

	n := m.Broadcast("depth@TATA_INR", []byte("payload"))
	assert.Equal(t, 2, n)
	assert.Len(t, a.received, 1)
	assert.Len(t, b.received, 1)

	n = m.Broadcast("trade@TATA_INR", []byte("payload"))
	assert.Equal(t, 1, n)
	assert.Len(t, b.received, 2)

	assert.Equal(t, 0, m.Broadcast("depth@OTHER", []byte("payload")))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	m := newTestManager()
	a := &fakeSubscriber{id: "a"}

	m.Subscribe(a, "depth@TATA_INR")
	m.Subscribe(a, "depth@TATA_INR")

	assert.Equal(t, 1, m.Broadcast("depth@TATA_INR", []byte("x")))
	assert.Len(t, a.received, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := newTestManager()
	a := &fakeSubscriber{id: "a"}

	m.Subscribe(a, "depth@TATA_INR")
	m.Unsubscribe("a", "depth@TATA_INR")

	assert.Equal(t, 0, m.Broadcast("depth@TATA_INR", []byte("x")))
	assert.Empty(t, m.Subscriptions("a"))
}

func TestDropRemovesAllSubscriptions(t *testing.T) {
	m := newTestManager()
	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}

	m.Subscribe(a, "depth@TATA_INR")
	m.Subscribe(a, "trade@TATA_INR")
	m.Subscribe(b, "trade@TATA_INR")

	m.Drop("a")

	assert.Equal(t, 0, m.Broadcast("depth@TATA_INR", nil))
	assert.Equal(t, 1, m.Broadcast("trade@TATA_INR", nil))
	assert.Empty(t, m.Subscriptions("a"))
	assert.Len(t, m.Subscriptions("b"), 1)
}
