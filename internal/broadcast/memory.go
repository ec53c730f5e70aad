package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is the in-process mirror used by tests.
type MemoryBroadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{subs: make(map[string]map[int]chan []byte)}
}

func (b *MemoryBroadcaster) Publish(_ context.Context, matchID string, payload []byte) error {
	cp := append([]byte(nil), payload...)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[matchID] {
		select {
		case ch <- cp:
		default:
		}
	}
	return nil
}

func (b *MemoryBroadcaster) Subscribe(_ context.Context, matchID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[int]chan []byte)
	}
	b.subs[matchID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[matchID]; ok {
			if c, ok := set[id]; ok {
				delete(set, id)
				close(c)
			}
			if len(set) == 0 {
				delete(b.subs, matchID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}
