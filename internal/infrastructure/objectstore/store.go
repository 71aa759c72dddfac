package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/configs"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
)

// Store implements ports.Store on a JetStream object store bucket. Object
// names are unrestricted, so namespaced keys with ':' and non-ASCII text
// pass through as-is.
type Store struct {
	bucket jetstream.ObjectStore
}

// Connect dials the NATS server from the config and initializes JetStream.
func Connect(cfg *configs.NATSConfig) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.URL, nats.Timeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	return nc, js, nil
}

// NewStore creates or reuses the configured bucket. Entry expiry is handled
// by the server through the bucket TTL; ttl <= 0 disables it.
func NewStore(ctx context.Context, js jetstream.JetStream, cfg *configs.NATSConfig, ttl time.Duration) (*Store, error) {
	if ttl < 0 {
		ttl = 0
	}
	bucket, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: "knowledge cache entries",
		TTL:         ttl,
		MaxBytes:    cfg.MaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{bucket: bucket}, nil
}

// Get implements Store.Get. A missing object is absent, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.bucket.GetBytes(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("object store get %q: %w", key, err)
	}
	return data, true, nil
}

// Set implements Store.Set. Put replaces any existing object under the same
// name. Expiry is governed by the bucket TTL, so the per-call ttl is
// ignored.
func (s *Store) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := s.bucket.PutBytes(ctx, key, value); err != nil {
		return fmt.Errorf("object store put %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.Delete. Deleting a missing object is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("object store delete %q: %w", key, err)
	}
	return nil
}

var _ ports.Store = (*Store)(nil)
