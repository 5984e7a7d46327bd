package trialstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insightball/entitlements/pkg/entitlement"
)

// Store caches snapshots per account key. A miss is (nil, nil).
type Store interface {
	Get(ctx context.Context, key string) (*entitlement.Snapshot, error)
	Set(ctx context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	snap      entitlement.Snapshot
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore returns the default in-process snapshot cache.
func NewMemoryStore() Store {
	return &memoryStore{
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (*entitlement.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	snap := e.snap
	return &snap, nil
}

func (s *memoryStore) Set(_ context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{snap: snap, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type redisStore struct {
	db *redis.Client
}

// NewRedisStore returns a Redis-backed snapshot cache for multi-replica
// deployments: an Invalidate issued by one replica is seen by all of them,
// so no screen keeps serving a pre-mutation snapshot.
func NewRedisStore(db *redis.Client) Store {
	return &redisStore{db: db}
}

func (s *redisStore) Get(ctx context.Context, key string) (*entitlement.Snapshot, error) {
	val, err := s.db.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trialstate: redis get: %w", err)
	}
	var snap entitlement.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("trialstate: decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (s *redisStore) Set(ctx context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("trialstate: encode snapshot: %w", err)
	}
	if err := s.db.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("trialstate: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("trialstate: redis del: %w", err)
	}
	return nil
}

func (s *redisStore) key(key string) string {
	return "entitlement:snapshot:" + key
}
