package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"delivery channel", errors.New("message channel closed"), true},
		{"validation", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	c := &Client{exchangeName: "litfunds", queueName: "litfunds_sync"}

	if c.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}
	if !c.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if c.isCircuitOpen() {
		t.Fatal("circuit should go half-open after the timeout")
	}
	if atomic.LoadInt32(&c.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", c.state)
	}

	// one failure while half-open reopens
	c.recordFailure()
	if atomic.LoadInt32(&c.state) != StateOpen {
		t.Fatalf("state = %d, want open", c.state)
	}

	c.recordSuccess()
	if c.isCircuitOpen() || atomic.LoadInt64(&c.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestPublishGuards(t *testing.T) {
	c := &Client{exchangeName: "litfunds", queueName: "litfunds_sync"}
	ev := NewTransactionEvent(ActionCreated, "u1", "t1")

	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()
	if err := c.PublishTransactionEvent(context.Background(), ev); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	c.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.PublishTransactionEvent(ctx, ev); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestSettle(t *testing.T) {
	good, _ := NewTransactionEvent(ActionDeleted, "u1", "t9").ToJSON()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantRequeu bool
	}{
		{name: "handled", body: good, wantAck: true},
		{name: "handler fails", body: good, handlerErr: errors.New("sheets down"), wantRequeu: true},
		{name: "malformed", body: []byte(`{"action":"exploded"}`)},
		{name: "not json", body: []byte(`nope`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			var seen TransactionEvent
			settle(context.Background(), tt.body, ack, func(_ context.Context, ev TransactionEvent) error {
				seen = ev
				return tt.handlerErr
			})
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("expected nack")
			}
			if ack.requeued != tt.wantRequeu {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeu)
			}
			if tt.wantAck && seen.TransactionID != "t9" {
				t.Errorf("handler saw %+v", seen)
			}
		})
	}
}

func TestTransactionEventFromJSON(t *testing.T) {
	ev := TransactionEvent{
		Action:        ActionUpdated,
		UserID:        "u1",
		TransactionID: "t1",
		Timestamp:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(body), `"action":"updated"`) {
		t.Fatalf("unexpected body %s", body)
	}

	got, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON: %v", err)
	}
	if got.TransactionID != "t1" || !got.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("got %+v", got)
	}

	if _, err := TransactionEventFromJSON([]byte(`{"action":"created","user_id":"u1"}`)); err == nil {
		t.Error("expected error for missing transaction id")
	}
}

type fakeCloser struct{ closed int }

func (f *fakeCloser) Close() error {
	f.closed++
	return nil
}

type fakeChannel struct{ fakeCloser }

func (*fakeChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp091.Publishing) error {
	return nil
}

func (*fakeChannel) Qos(int, int, bool) error { return nil }

func (*fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return nil, nil
}

func TestSwapClosesReplacedConnection(t *testing.T) {
	c := &Client{exchangeName: "litfunds", queueName: "litfunds_sync"}
	oldConn, oldCh := &fakeCloser{}, &fakeChannel{}
	c.swap(oldConn, oldCh)
	if oldConn.closed != 0 || oldCh.closed != 0 {
		t.Fatal("first swap should not close anything")
	}

	newConn, newCh := &fakeCloser{}, &fakeChannel{}
	c.swap(newConn, newCh)
	if oldConn.closed != 1 || oldCh.closed != 1 {
		t.Fatalf("replaced pair closed conn=%d channel=%d times", oldConn.closed, oldCh.closed)
	}
	if c.currentChannel() != newCh {
		t.Fatal("current channel was not replaced")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if newConn.closed != 1 || newCh.closed != 1 || c.currentChannel() != nil {
		t.Fatal("Close should release the current pair")
	}
}
