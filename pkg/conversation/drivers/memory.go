package drivers

import (
	"context"
	"sync"

	"github.com/go-go-golems/gptbot/pkg/conversation"
)

// InMemoryBackend keeps encoded records in a map. Nothing survives the
// process; it backs the "memory" history backend and tests.
type InMemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ conversation.Backend = (*InMemoryBackend)(nil)

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		records: map[string][]byte{},
	}
}

func (b *InMemoryBackend) Load(ctx context.Context, id string) (*conversation.Log, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.records[id]
	if !ok {
		return nil, conversation.ErrNotFound
	}
	return conversation.DecodeLog(data)
}

func (b *InMemoryBackend) Save(ctx context.Context, id string, l *conversation.Log) error {
	data, err := conversation.EncodeLog(l)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[id] = data
	return nil
}

// Put stores raw bytes as the record for id, bypassing validation.
func (b *InMemoryBackend) Put(id string, raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[id] = append([]byte(nil), raw...)
}

func (b *InMemoryBackend) Close() error {
	return nil
}
