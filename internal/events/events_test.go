package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed before event arrived")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed")
	}
}

func newRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBroker(client, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func brokers(t *testing.T) map[string]Broker {
	return map[string]Broker{
		"memory": NewMemoryBroker(),
		"redis":  newRedisBroker(t),
	}
}

func TestBroker_DeliversToDocumentSubscribers(t *testing.T) {
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ch, cancel, err := b.Subscribe(ctx, "doc-1")
			require.NoError(t, err)
			defer cancel()

			other, cancelOther, err := b.Subscribe(ctx, "doc-2")
			require.NoError(t, err)
			defer cancelOther()

			sent := New(TypeStatusChanged, "doc-1", map[string]interface{}{"status": "ready"})
			require.NoError(t, b.Publish(ctx, "doc-1", sent))

			got := receive(t, ch)
			assert.Equal(t, TypeStatusChanged, got.Type)
			assert.Equal(t, "doc-1", got.DocumentID)
			assert.Equal(t, "ready", got.Data["status"])

			select {
			case ev := <-other:
				t.Fatalf("unexpected event for other document: %+v", ev)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			ch, cancel, err := b.Subscribe(context.Background(), "doc-1")
			require.NoError(t, err)

			cancel()
			assertClosed(t, ch)

			// publishing after the last subscriber left is not an error
			assert.NoError(t, b.Publish(context.Background(), "doc-1", New(TypeRestored, "doc-1", nil)))
		})
	}
}

func TestBroker_ContextEndsSubscription(t *testing.T) {
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			ch, unsubscribe, err := b.Subscribe(ctx, "doc-1")
			require.NoError(t, err)
			defer unsubscribe()

			cancel()
			assertClosed(t, ch)
		})
	}
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	_, cancel, err := b.Subscribe(ctx, "doc-1")
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, b.Publish(ctx, "doc-1", New(TypeProgress, "doc-1", nil)))
	}
}

func TestMemoryBroker_Close(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel, err := b.Subscribe(context.Background(), "doc-1")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assertClosed(t, ch)
	cancel()

	late, _, err := b.Subscribe(context.Background(), "doc-1")
	require.NoError(t, err)
	assertClosed(t, late)
}
