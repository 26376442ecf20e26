package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed before value")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
		panic("unreachable")
	}
}

func TestSubscriberReceivesInPublishOrder(t *testing.T) {
	b := New[int](false)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	for i := 0; i < 50; i++ {
		b.Publish(i)
	}

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, recvOne(t, ch))
	}
}

func TestReplayDeliversLatestFirst(t *testing.T) {
	b := New[string](true)
	defer b.Close()

	b.Publish("old")
	b.Publish("current")

	ch := b.Subscribe(context.Background())
	assert.Equal(t, "current", recvOne(t, ch))

	b.Publish("next")
	assert.Equal(t, "next", recvOne(t, ch))
}

func TestNoReplayWithoutPriorPublish(t *testing.T) {
	b := New[int](true)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(7)
	assert.Equal(t, 7, recvOne(t, ch))
}

func TestIndependentSubscribersSeeSameSequence(t *testing.T) {
	b := New[int](false)
	defer b.Close()

	a := b.Subscribe(context.Background())
	c := b.Subscribe(context.Background())

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, recvOne(t, a))
	assert.Equal(t, 1, recvOne(t, c))
	assert.Equal(t, 2, recvOne(t, a))
	assert.Equal(t, 2, recvOne(t, c))
}

func TestCancelClosesChannel(t *testing.T) {
	b := New[int](false)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestCloseDrainsQueuedValues(t *testing.T) {
	b := New[int](false)

	ch := b.Subscribe(context.Background())
	b.Publish(1)
	b.Publish(2)
	b.Close()

	assert.Equal(t, 1, recvOne(t, ch))
	assert.Equal(t, 2, recvOne(t, ch))

	_, ok := <-ch
	assert.False(t, ok, "channel should close once drained")
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := New[int](false)
	b.Close()

	ch := b.Subscribe(context.Background())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestLatest(t *testing.T) {
	b := New[int](true)
	defer b.Close()

	_, ok := b.Latest()
	assert.False(t, ok)

	b.Publish(42)
	v, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, 42, v)
}
