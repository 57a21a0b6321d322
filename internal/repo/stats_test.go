package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedFinance(t *testing.T, db *gorm.DB, userID int64, day string, amount string, updated time.Time) *domain.Finance {
	t.Helper()
	d, err := domain.ParseDate(day)
	if err != nil {
		t.Fatalf("parse %q: %v", day, err)
	}
	f := &domain.Finance{
		UserID:          userID,
		TransactionDate: d,
		Description:     "seed",
		Amount:          decimal.RequireFromString(amount),
		Category:        domain.DefaultCategory,
		TransactionType: domain.TransactionExpense,
		CreatedAt:       updated,
		UpdatedAt:       updated,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("seed finance: %v", err)
	}
	return f
}

func TestFinanceStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := FinanceStats(context.Background(), db, 1)
	if err == nil {
		t.Fatalf("expected error due to missing finance table")
	}
}

func TestFinanceStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Finance{})
	count, maxAt, err := FinanceStats(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("FinanceStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestFinanceStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Finance{})

	t1 := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) // max for user 1
	t3 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)   // other user, later

	seedFinance(t, db, 1, "2026-01-02", "10", t1)
	seedFinance(t, db, 1, "2026-03-04", "20", t2)
	seedFinance(t, db, 2, "2026-05-01", "30", t3)

	count, maxAt, err := FinanceStats(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("FinanceStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max %v, got %v", t2, maxAt)
	}
}

func TestTasksStats_Success(t *testing.T) {
	db := newTestDB(t, &domain.Task{})
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	task := &domain.Task{
		UserID: 7, Title: "pay rent", Description: domain.DefaultDescription,
		Priority: domain.PriorityMedium, Type: domain.TaskPersonal,
		DateAdded: domain.DateOf(at), CreatedAt: at, UpdatedAt: at,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	count, maxAt, err := TasksStats(context.Background(), db, 7)
	if err != nil || count != 1 || maxAt == nil || !maxAt.Equal(at) {
		t.Fatalf("TasksStats = (%d, %v, %v)", count, maxAt, err)
	}
	if count, _, _ := TasksStats(context.Background(), db, 8); count != 0 {
		t.Fatalf("other tenant sees %d tasks", count)
	}
}
