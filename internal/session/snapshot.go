package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Snapshot is the persisted view of a register session, written after every
// mutation so a till reload picks up where it left off. Derived line totals
// are recomputed on restore, never trusted from storage.
type Snapshot struct {
	Lines          []cart.Line        `json:"lines"`
	Customer       *customer.Customer `json:"customer,omitempty"`
	GlobalDiscount *pricing.Discount  `json:"globalDiscount,omitempty"`
	PromoCode      *PromoCode         `json:"promoCode,omitempty"`
	InvoiceMode    bool               `json:"invoiceMode"`
}

// SnapshotStore persists session snapshots keyed by register id.
type SnapshotStore interface {
	Load(ctx context.Context, registerID string) (*Snapshot, error)
	Save(ctx context.Context, registerID string, snap Snapshot) error
	Delete(ctx context.Context, registerID string) error
}

// RedisStore keeps snapshots in Redis with a TTL: an abandoned ticket is not
// worth keeping forever.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisStore) key(registerID string) string {
	return "pos:session:" + registerID
}

func (s *RedisStore) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

// Load reads the snapshot for the register, nil when none exists.
func (s *RedisStore) Load(ctx context.Context, registerID string) (*Snapshot, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("snapshot store not configured")
	}
	data, err := s.Client.Get(ctx, s.key(registerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt snapshot is discarded rather than blocking the register.
		return nil, nil
	}
	return &snap, nil
}

// Save writes the snapshot.
func (s *RedisStore) Save(ctx context.Context, registerID string, snap Snapshot) error {
	if s == nil || s.Client == nil {
		return errors.New("snapshot store not configured")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(registerID), data, s.ttl()).Err()
}

// Delete removes the snapshot.
func (s *RedisStore) Delete(ctx context.Context, registerID string) error {
	if s == nil || s.Client == nil {
		return errors.New("snapshot store not configured")
	}
	return s.Client.Del(ctx, s.key(registerID)).Err()
}

// MemoryStore is an in-process snapshot store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

// Load returns the stored snapshot, nil when absent.
func (s *MemoryStore) Load(_ context.Context, registerID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[registerID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Save stores the snapshot.
func (s *MemoryStore) Save(_ context.Context, registerID string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps == nil {
		s.snaps = make(map[string]Snapshot)
	}
	s.snaps[registerID] = snap
	return nil
}

// Delete removes the snapshot.
func (s *MemoryStore) Delete(_ context.Context, registerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, registerID)
	return nil
}
