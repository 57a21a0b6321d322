// Package repo: thin CRUD helpers for the finance and task tables. Every
// read is scoped by user_id; none of them carries business rules.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateFinance inserts f and fills its ID and timestamps.
func CreateFinance(ctx context.Context, db *gorm.DB, f *domain.Finance) error {
	return db.WithContext(ctx).Create(f).Error
}

// CountFinance returns how many finance records userID owns.
func CountFinance(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Finance{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListFinancePage returns a page of userID's finance records, newest
// transaction first.
func ListFinancePage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Finance, error) {
	var out []domain.Finance
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("transaction_date desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateTask inserts t and fills its ID and timestamps.
func CreateTask(ctx context.Context, db *gorm.DB, t *domain.Task) error {
	return db.WithContext(ctx).Create(t).Error
}

// CountTasks returns how many tasks userID owns.
func CountTasks(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListTasksPage returns a page of userID's tasks: open tasks first, then by
// due date with undated tasks last.
func ListTasksPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Task, error) {
	var out []domain.Task
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed asc, due_date IS NULL, due_date asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
