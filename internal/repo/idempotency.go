package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

// ErrDuplicate means a live reply is already stored for (user_id, scope, key).
var ErrDuplicate = errors.New("duplicate")

// tupleWhere selects one (user_id, scope, key) row.
const tupleWhere = "user_id = ? AND scope = ? AND key = ?"

// GetIdempotency returns the reply stored for (userID, scope, key) that is
// still live at now, or ErrNotFound. Blank scope or key never match.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID int64, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(tupleWhere+" AND expires_at > ?", userID, scope, key, now).
		Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores a reply that stays live for ttl. An expired row
// for the same tuple is replaced in the same transaction; a live one yields
// ErrDuplicate.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID int64, scope, key string, status int, body string, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Scope:     scope,
		Key:       key,
		Status:    status,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Where(tupleWhere+" AND expires_at <= ?", userID, scope, key, now).
			Delete(&domain.Idempotency{})
		if stale.Error != nil {
			return stale.Error
		}
		return tx.Create(rec).Error
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes every reply that expired at or before now
// and returns how many rows went.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation recognises UNIQUE failures. The pure-Go sqlite driver
// reports them as text rather than gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "constraint failed: unique")
}
