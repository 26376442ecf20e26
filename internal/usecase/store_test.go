package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func msgAt(id string, ts time.Time) domain.Message {
	return domain.Message{
		ID:        id,
		Role:      domain.RoleUser,
		Content:   "m-" + id,
		Timestamp: ts,
		Status:    domain.StatusSent{},
	}
}

func recvList(t *testing.T, ch <-chan []domain.Message) []domain.Message {
	t.Helper()
	select {
	case l, ok := <-ch:
		require.True(t, ok, "observe channel closed")
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
		panic("unreachable")
	}
}

func TestObserveStartsWithCurrentSnapshot(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Add(msgAt("a", now)))

	ch := s.Observe(context.Background())
	list := recvList(t, ch)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestAddEmitsSortedByTimestamp(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Add(msgAt("late", now.Add(time.Second))))
	require.NoError(t, s.Add(msgAt("early", now)))

	list := s.Snapshot()
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)
}

func TestEqualTimestampsKeepInsertionOrder(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	ts := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(msgAt(fmt.Sprintf("m%d", i), ts)))
	}

	list := s.Snapshot()
	require.Len(t, list, 5)
	for i, m := range list {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.ID)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	ch := s.Observe(context.Background())
	recvList(t, ch) // initial snapshot

	m := msgAt("dup", time.Now())
	require.NoError(t, s.Add(m))
	first := recvList(t, ch)
	require.Len(t, first, 1)

	// Second add with the same id: no-op, no re-emission.
	m.Content = "changed"
	require.NoError(t, s.Add(m))
	assert.Equal(t, 1, s.Count())

	got, ok := s.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "m-dup", got.Content, "duplicate add must not replace the record")

	select {
	case list := <-ch:
		t.Fatalf("unexpected emission after duplicate add: %v", list)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddRejectsEmptyID(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	err := s.Add(domain.Message{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, 0, s.Count())
}

func TestUpdateReplacesRecord(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	m := msgAt("x", time.Now())
	require.NoError(t, s.Add(m))

	m.Content = "replaced"
	m.Status = domain.StatusFailed{Cause: errors.New("boom"), Retryable: true}
	require.NoError(t, s.Update(m))

	got, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Content)
	failed, ok := got.Status.(domain.StatusFailed)
	require.True(t, ok)
	assert.True(t, failed.Retryable)
}

func TestUpdateMissingIDFails(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	err := s.Update(msgAt("ghost", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClearAndCount(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	require.NoError(t, s.Add(msgAt("a", time.Now())))
	require.NoError(t, s.Add(msgAt("b", time.Now())))
	assert.Equal(t, 2, s.Count())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Snapshot())
}

// Every emission must be a complete snapshot in timestamp order, even while
// concurrent writers race on the store.
func TestConcurrentMutationsEmitConsistentSnapshots(t *testing.T) {
	s := NewStore(testLogger())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Observe(ctx)

	const writers = 8
	const perWriter = 20

	observed := make(chan error, 1)
	go func() {
		defer close(observed)
		for list := range ch {
			for i := 1; i < len(list); i++ {
				if list[i].Timestamp.Before(list[i-1].Timestamp) {
					observed <- fmt.Errorf("emission out of order at %d", i)
					return
				}
			}
			if len(list) == writers*perWriter {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	base := time.Now()
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				m := msgAt(fmt.Sprintf("w%d-%d", w, i), base.Add(time.Duration(i)*time.Millisecond))
				if err := s.Add(m); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	select {
	case err, ok := <-observed:
		if ok && err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("observer never saw the final snapshot")
	}
	cancel()

	assert.Equal(t, writers*perWriter, s.Count())
}
