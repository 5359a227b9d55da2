package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessionSnapshotStore implements SessionSnapshotStore using Redis. Every save
// refreshes the TTL, so a snapshot lives exactly as long as its idle session.
type RedisSessionSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionSnapshotStore creates a new Redis snapshot store
func NewRedisSessionSnapshotStore(client *redis.Client, ttl time.Duration) ports.SessionSnapshotStore {
	return &RedisSessionSnapshotStore{
		client: client,
		ttl:    ttl,
	}
}

// Save writes the view under session:<id>
func (r *RedisSessionSnapshotStore) Save(ctx context.Context, view *domain.SettingsView) error {
	data, err := EncodeSnapshot(view)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKey(view.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// Load reads the view for a session, nil when it does not exist
func (r *RedisSessionSnapshotStore) Load(ctx context.Context, sessionID string) (*domain.SettingsView, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}
	return DecodeSnapshot(data)
}

// Delete removes the snapshot of a session
func (r *RedisSessionSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

// MemorySessionSnapshotStore keeps snapshots in process memory with the same expiry
// semantics as the Redis store.
type MemorySessionSnapshotStore struct {
	mu      sync.Mutex
	entries map[string]memorySnapshot
	ttl     time.Duration
	now     func() time.Time
}

type memorySnapshot struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionSnapshotStore creates an in-memory snapshot store
func NewMemorySessionSnapshotStore(ttl time.Duration) *MemorySessionSnapshotStore {
	return &MemorySessionSnapshotStore{
		entries: make(map[string]memorySnapshot),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemorySessionSnapshotStore) Save(_ context.Context, view *domain.SettingsView) error {
	data, err := EncodeSnapshot(view)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[view.SessionID] = memorySnapshot{data: data, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionSnapshotStore) Load(_ context.Context, sessionID string) (*domain.SettingsView, error) {
	m.mu.Lock()
	entry, ok := m.entries[sessionID]
	if ok && m.ttl > 0 && !m.now().Before(entry.expiresAt) {
		delete(m.entries, sessionID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return DecodeSnapshot(entry.data)
}

func (m *MemorySessionSnapshotStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

// EncodeSnapshot serializes a view for storage
func EncodeSnapshot(view *domain.SettingsView) ([]byte, error) {
	if view == nil || view.SessionID == "" {
		return nil, fmt.Errorf("snapshot requires a session id")
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot restores a stored view. A missing billing address is defaulted so a
// restored profile keeps the same invariant as a fetched one.
func DecodeSnapshot(data []byte) (*domain.SettingsView, error) {
	var view domain.SettingsView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	if view.Shop != nil && view.Shop.BillingAddress == nil {
		view.Shop.BillingAddress = map[string]any{}
	}
	return &view, nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
