package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAck struct {
	mu   sync.Mutex
	recs map[uint64]ackRecord
}

func newFakeAck() *fakeAck { return &fakeAck{recs: map[uint64]ackRecord{}} }

func (f *fakeAck) rec(tag uint64) ackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[tag]
}

func (f *fakeAck) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[tag] = ackRecord{acked: true}
	return nil
}

func (f *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[tag] = ackRecord{nacked: true, requeue: requeue}
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error { return f.Nack(tag, false, requeue) }

type fakeChannel struct {
	msgs      chan amqp.Delivery
	cancelled chan string
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.msgs, nil
}

func (c *fakeChannel) Cancel(consumer string, _ bool) error {
	c.cancelled <- consumer
	close(c.msgs)
	return nil
}

type warmer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (w *warmer) Prewarm(_ context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, id)
	return w.err
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body), RoutingKey: "order.placed"}
}

func TestJSONHandler_DecodesAndFlagsMalformed(t *testing.T) {
	var got usecase.OrderPlacedMsg
	h := JSONHandler[usecase.OrderPlacedMsg]{HandleFunc: func(_ context.Context, m usecase.OrderPlacedMsg) error {
		got = m
		return nil
	}}

	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{Body: []byte(`{"orderId":7,"orderNumber":"n-7","totalAmount":"1.50"}`)}))
	assert.Equal(t, int64(7), got.OrderID)
	assert.Equal(t, "1.50", got.TotalAmount)

	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte(`{`)})
	assert.ErrorIs(t, err, ErrMalformed)
	assert.True(t, permanent(err))
}

func TestPermanent(t *testing.T) {
	assert.True(t, permanent(domain.NewNotFound("order", 1)))
	assert.True(t, permanent(domain.NewValidation("x", "y")))
	assert.False(t, permanent(errors.New("connection reset")))
}

func TestRouter_AckNackAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	ack := newFakeAck()
	ch := &fakeChannel{msgs: make(chan amqp.Delivery, 4), cancelled: make(chan string, 1)}
	w := &warmer{}

	r := NewRouter(ch, WithTimeout(time.Second))
	r.Register("order.placed.invoice.q", JSONHandler[usecase.OrderPlacedMsg]{
		HandleFunc: NewInvoicePrewarmHandler(w).HandlePlaced,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	ch.msgs <- delivery(ack, 1, `{"orderId":11}`)
	ch.msgs <- delivery(ack, 2, `not json`)

	require.Eventually(t, func() bool {
		return ack.rec(1).acked && ack.rec(2).nacked
	}, time.Second, 5*time.Millisecond)
	assert.False(t, ack.rec(2).requeue, "malformed messages are dropped")

	w.mu.Lock()
	w.err = errors.New("render backend down")
	w.mu.Unlock()
	ch.msgs <- delivery(ack, 3, `{"orderId":12}`)
	require.Eventually(t, func() bool { return ack.rec(3).nacked }, time.Second, 5*time.Millisecond)
	assert.True(t, ack.rec(3).requeue, "transient failures are retried")

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "c_order.placed.invoice.q", <-ch.cancelled)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, []int64{11, 12}, w.ids)
}
