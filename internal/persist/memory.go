package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps rows in memory. Used by tests and offline checks.
type MemoryStore struct {
	mu        sync.Mutex
	tracks    []TrackRecord
	wind      []WindRecord
	speed     []SpeedRecord
	positions []PositionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertTrack(_ context.Context, r TrackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, r)
	return nil
}

func (m *MemoryStore) InsertWind(_ context.Context, r WindRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wind = append(m.wind, r)
	return nil
}

func (m *MemoryStore) InsertBoatSpeed(_ context.Context, r SpeedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = append(m.speed, r)
	return nil
}

func (m *MemoryStore) InsertPosition(_ context.Context, r PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions, r)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Tracks() []TrackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TrackRecord(nil), m.tracks...)
}

func (m *MemoryStore) Wind() []WindRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WindRecord(nil), m.wind...)
}

func (m *MemoryStore) BoatSpeed() []SpeedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SpeedRecord(nil), m.speed...)
}

func (m *MemoryStore) Positions() []PositionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PositionRecord(nil), m.positions...)
}
