package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/db"
)

// KnowledgeStore implements ports.Store on the knowledge_entries table.
// Rows past their expiry read as absent until DeleteExpired reclaims them.
type KnowledgeStore struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewKnowledgeStore creates a new Postgres-backed knowledge store
func NewKnowledgeStore(database *db.Database, logger *logrus.Logger) *KnowledgeStore {
	return &KnowledgeStore{db: database, logger: logger}
}

// Get implements Store.Get. A missing or expired row is absent, not an error.
func (r *KnowledgeStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	query := `
		SELECT value
		FROM knowledge_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	err := r.db.DB.GetContext(ctx, &value, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get knowledge entry: %w", err)
	}

	return value, true, nil
}

// Set implements Store.Set as an upsert. ttl <= 0 stores without expiry.
func (r *KnowledgeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO knowledge_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	if _, err := r.db.DB.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to store knowledge entry: %w", err)
	}

	return nil
}

// Delete implements Store.Delete. Deleting an absent key is a no-op.
func (r *KnowledgeStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM knowledge_entries WHERE key = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}

	return nil
}

// DeleteExpired removes rows whose TTL elapsed. Run it periodically.
func (r *KnowledgeStore) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM knowledge_entries WHERE expires_at IS NOT NULL AND expires_at <= NOW()`

	result, err := r.db.DB.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete expired knowledge entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"rows": rowsAffected}).Info("cleaned up expired knowledge entries")
	}

	return nil
}

var _ ports.Store = (*KnowledgeStore)(nil)
