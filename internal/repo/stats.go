// Package repo: small aggregate queries used for conditional responses
// (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

// FinanceStats returns the number of finance records userID owns and the
// greatest UpdatedAt among them (nil when there are none).
func FinanceStats(ctx context.Context, db *gorm.DB, userID int64) (count int64, maxUpdatedAt *time.Time, err error) {
	return tenantStats(ctx, db, &domain.Finance{}, userID)
}

// TasksStats is FinanceStats for the task table.
func TasksStats(ctx context.Context, db *gorm.DB, userID int64) (count int64, maxUpdatedAt *time.Time, err error) {
	return tenantStats(ctx, db, &domain.Task{}, userID)
}

func tenantStats(ctx context.Context, db *gorm.DB, model any, userID int64) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(model).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(model).Where("user_id = ?", userID).
		Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
