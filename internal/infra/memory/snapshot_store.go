package memory

import (
	"context"
	"sync"

	"listenlab/internal/domain"
)

// SnapshotStore keeps the latest session snapshot per session ID in memory.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.SessionStats
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]domain.SessionStats),
	}
}

func (s *SnapshotStore) SaveSnapshot(_ context.Context, stats domain.SessionStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[stats.SessionID] = stats
	return nil
}

// Snapshot returns the last saved snapshot for a session.
func (s *SnapshotStore) Snapshot(sessionID string) (domain.SessionStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.snapshots[sessionID]
	return stats, ok
}
