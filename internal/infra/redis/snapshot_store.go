package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"listenlab/internal/domain"
)

// SnapshotStore persists session snapshots to Redis for crash-recovery
// display. Each session's latest snapshot lives under
// practice_session_{sessionId} as the JSON form of SessionStats.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, stats domain.SessionStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(stats.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Snapshot loads the last saved snapshot for a session.
func (s *SnapshotStore) Snapshot(ctx context.Context, sessionID string) (domain.SessionStats, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return domain.SessionStats{}, false, nil
	}
	if err != nil {
		return domain.SessionStats{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var stats domain.SessionStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.SessionStats{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return stats, true, nil
}

func (s *SnapshotStore) key(sessionID string) string {
	return "practice_session_" + sessionID
}
