package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
)

// SnapshotStore keeps a form's snapshot alive between the browser opening
// the form and submitting it. Snapshots are scoped to the owning session.
type SnapshotStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSnapshotStore(rdb redis.Cmdable, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = redisx.TTLOrderForm
	}
	return &SnapshotStore{rdb: rdb, ttl: ttl}
}

// Save stores snap under a new form id.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, snap Snapshot) (string, error) {
	formID := uuid.NewString()
	if err := s.Put(ctx, sessionID, formID, snap); err != nil {
		return "", err
	}
	return formID, nil
}

// Put stores snap under formID, replacing whatever was there.
func (s *SnapshotStore) Put(ctx context.Context, sessionID, formID string, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(redisx.KeyOrderForm, sessionID, formID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store order form: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, sessionID, formID string) (Snapshot, error) {
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(redisx.KeyOrderForm, sessionID, formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrFormExpired
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load order form: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode order form: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID, formID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(redisx.KeyOrderForm, sessionID, formID)).Err()
}
