package domain

import "context"

// GenerateResult is a backend's answer to a prompt.
type GenerateResult struct {
	Text  string
	Model string
}

// Backend is a single AI backend (online proxy, local inference).
type Backend interface {
	// Generate produces a response for the prompt under the given configuration.
	Generate(ctx context.Context, text string, cfg AiConfiguration) (*GenerateResult, error)
	// Name returns the backend's identifier (e.g., "online", "offline").
	Name() string
}

// Gateway routes a prompt to the backend selected by the configuration and
// tracks backend health. Failures it returns are classified.
type Gateway interface {
	Generate(ctx context.Context, text string, cfg AiConfiguration) (string, error)
}

// MessageStore owns the canonical ordered message collection. All mutations
// are serialized; observers always see complete, fully-applied snapshots.
type MessageStore interface {
	// Observe streams the full ordered message list: the current snapshot
	// immediately, then every subsequent change, sorted by timestamp.
	Observe(ctx context.Context) <-chan []Message
	// Add inserts a message. Adding an existing id succeeds as a no-op
	// without re-emitting.
	Add(msg Message) error
	// Update replaces the record at msg.ID, failing with ErrNotFound if absent.
	Update(msg Message) error
	// Get returns the message with the given id.
	Get(id string) (Message, bool)
	// Snapshot returns a sorted copy of the current list.
	Snapshot() []Message
	// Clear removes all messages.
	Clear() error
	// Count returns the number of stored messages.
	Count() int
}

// ConfigProvider supplies the active AI configuration. Workflows read one
// Snapshot per invocation; Update is driven by an external settings surface.
type ConfigProvider interface {
	Snapshot(ctx context.Context) (AiConfiguration, error)
	Observe(ctx context.Context) <-chan AiConfiguration
	Update(ctx context.Context, cfg AiConfiguration) error
}
