package domain

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role constants for message authors.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation.
//
// ID is assigned at creation and never changes. Timestamp is the sole sort
// key for the observed ordering; the store breaks ties by insertion order.
// Status and Content may only change through the store's Update operation.
type Message struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewMessageID generates a ULID for the given creation time.
func NewMessageID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewUserMessage creates a user message in the Sent state.
func NewUserMessage(content string) Message {
	now := time.Now()
	return Message{
		ID:        NewMessageID(now),
		Role:      RoleUser,
		Content:   content,
		Timestamp: now,
		Status:    StatusSent{},
	}
}

// NewAssistantPlaceholder creates an empty assistant message in the
// Processing state. The owning workflow finalizes it in place once the
// backend call completes.
func NewAssistantPlaceholder() Message {
	now := time.Now()
	return Message{
		ID:        NewMessageID(now),
		Role:      RoleAssistant,
		Timestamp: now,
		Status:    StatusProcessing{},
	}
}

// MessageStatus is the closed set of message lifecycle states.
type MessageStatus interface {
	messageStatus()
}

// StatusSent is the terminal success state.
type StatusSent struct{}

// StatusProcessing marks an assistant message whose exchange is in flight.
// At most one exchange holds a message in this state at a time.
type StatusProcessing struct{}

// StatusFailed is terminal unless the exchange is retried. Cause carries the
// classified failure; Retryable gates whether a retry is offered.
type StatusFailed struct {
	Cause     error
	Retryable bool
}

func (StatusSent) messageStatus()       {}
func (StatusProcessing) messageStatus() {}
func (StatusFailed) messageStatus()     {}
