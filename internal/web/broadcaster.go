package web

import (
	"sync"

	"sailperf/internal/fusion"
)

// SnapshotBroadcaster fans trigger snapshots out to stream subscribers.
// Slow subscribers miss snapshots rather than stall ingestion.
type SnapshotBroadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan fusion.Snapshot
	nextID int
	closed bool
}

func NewSnapshotBroadcaster() *SnapshotBroadcaster {
	return &SnapshotBroadcaster{subs: make(map[int]chan fusion.Snapshot)}
}

func (b *SnapshotBroadcaster) Subscribe(buffer int) (int, <-chan fusion.Snapshot) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan fusion.Snapshot, buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return -1, ch
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *SnapshotBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *SnapshotBroadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish has the fusion.TriggerFunc signature so it can be chained into
// the trigger hook.
func (b *SnapshotBroadcaster) Publish(snap fusion.Snapshot) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close ends every subscription; stream handlers return once their channel
// is closed.
func (b *SnapshotBroadcaster) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
