package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"parley/internal/broadcast"
	"parley/internal/domain"
)

// Store is the in-memory message store. It exclusively owns every message
// after insertion: workflows replace records through Update, never by field
// mutation.
//
// All mutations run inside one critical section that also covers the
// notification to observers, so an emitted list is always a complete,
// fully-applied snapshot and emissions never interleave across mutations.
type Store struct {
	mu     sync.Mutex
	byID   map[string]int
	seq    []domain.Message // insertion order; ties in Timestamp keep this order
	feed   *broadcast.Broadcaster[[]domain.Message]
	logger *slog.Logger
}

var _ domain.MessageStore = (*Store)(nil)

// NewStore creates an empty message store.
func NewStore(logger *slog.Logger) *Store {
	s := &Store{
		byID:   make(map[string]int),
		feed:   broadcast.New[[]domain.Message](true),
		logger: logger,
	}
	s.feed.Publish(nil) // seed so the first subscriber sees the empty state
	return s
}

// Observe implements domain.MessageStore. Each subscriber immediately
// receives the current snapshot, then every subsequent change.
func (s *Store) Observe(ctx context.Context) <-chan []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.Subscribe(ctx)
}

// Add implements domain.MessageStore. Adding an id that already exists
// succeeds as a no-op without re-emitting.
func (s *Store) Add(msg domain.Message) error {
	if msg.ID == "" {
		return domain.NewDomainError("Store.Add", domain.ErrInvalidInput, "empty message id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[msg.ID]; exists {
		s.logger.Debug("duplicate add ignored", "id", msg.ID)
		return nil
	}
	s.byID[msg.ID] = len(s.seq)
	s.seq = append(s.seq, msg)
	s.feed.Publish(s.snapshotLocked())
	return nil
}

// Update implements domain.MessageStore. It is the only path by which a
// message's content or status changes.
func (s *Store) Update(msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[msg.ID]
	if !ok {
		return domain.NewDomainError("Store.Update", domain.ErrNotFound, msg.ID)
	}
	s.seq[idx] = msg
	s.feed.Publish(s.snapshotLocked())
	return nil
}

// Get implements domain.MessageStore.
func (s *Store) Get(id string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return domain.Message{}, false
	}
	return s.seq[idx], true
}

// Snapshot implements domain.MessageStore.
func (s *Store) Snapshot() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Clear implements domain.MessageStore.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]int)
	s.seq = nil
	s.feed.Publish(s.snapshotLocked())
	return nil
}

// Count implements domain.MessageStore.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seq)
}

// Close stops the observation feed.
func (s *Store) Close() {
	s.feed.Close()
}

// snapshotLocked returns a copy of the messages sorted by timestamp
// ascending. The sort is stable, so equal timestamps keep insertion order.
// Callers must hold s.mu.
func (s *Store) snapshotLocked() []domain.Message {
	out := make([]domain.Message, len(s.seq))
	copy(out, s.seq)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
