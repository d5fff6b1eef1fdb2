package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

const defaultPrefix = "fluxgen:session:"

// SnapshotStore keeps session snapshots as JSON strings that expire with
// the session.
type SnapshotStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore creates a store whose entries live for ttl after their
// last save. A zero ttl keeps entries forever.
func NewSnapshotStore(client *Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		rdb:    client.rdb,
		prefix: defaultPrefix,
		ttl:    ttl,
	}
}

func (s *SnapshotStore) key(id string) string {
	return s.prefix + id
}

// Save writes snap and refreshes its expiry. The API key is never written.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.SessionSnapshot) error {
	snap.Settings.APIKey = ""
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", snap.ID, err)
	}
	if err := s.rdb.Set(ctx, s.key(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
	}
	return nil
}

// Load returns the snapshot for id. found is false when it does not exist
// or has expired.
func (s *SnapshotStore) Load(ctx context.Context, id string) (snap domain.SessionSnapshot, found bool, err error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SessionSnapshot{}, false, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return snap, true, nil
}

// Delete removes the snapshot for id.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
