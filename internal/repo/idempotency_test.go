package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

func seedReply(t *testing.T, db *gorm.DB, id string, user int64, key string, expires time.Time) {
	t.Helper()
	rec := &domain.Idempotency{
		ID: id, UserID: user, Scope: "/api/v1/chatbot/query", Key: key,
		Status: 200, Body: `{"message":"` + id + `"}`,
		CreatedAt: expires.Add(-time.Hour), ExpiresAt: expires,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestGetIdempotency_Lookup(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()
	const scope = "/api/v1/chatbot/query"

	seedReply(t, db, "live", 1, "k-live", now.Add(time.Hour))
	seedReply(t, db, "dead", 1, "k-dead", now.Add(-time.Minute))

	cases := []struct {
		name   string
		user   int64
		scope  string
		key    string
		wantID string
	}{
		{"live", 1, scope, "k-live", "live"},
		{"expired", 1, scope, "k-dead", ""},
		{"unknown key", 1, scope, "k-none", ""},
		{"other tenant", 2, scope, "k-live", ""},
		{"other scope", 1, "/api/v1/other", "k-live", ""},
		{"blank scope", 1, "  ", "k-live", ""},
		{"blank key", 1, scope, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := GetIdempotency(ctx, db, tc.user, tc.scope, tc.key, now)
			if tc.wantID == "" {
				if rec != nil || !errors.Is(err, ErrNotFound) {
					t.Fatalf("want ErrNotFound, got (%+v, %v)", rec, err)
				}
				return
			}
			if err != nil || rec.ID != tc.wantID {
				t.Fatalf("got (%+v, %v)", rec, err)
			}
		})
	}
}

func TestCreateIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	const scope = "/api/v1/chatbot/query"
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, 9, scope, "k9", 200, `{"success":true}`, 90*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.ExpiresAt.Before(start.Add(90*time.Minute)) || rec.ExpiresAt.After(start.Add(2*time.Hour)) {
		t.Fatalf("record = %+v", rec)
	}
	got, err := GetIdempotency(ctx, db, 9, scope, "k9", time.Now().UTC())
	if err != nil || got.Body != `{"success":true}` || got.Status != 200 {
		t.Fatalf("read back = (%+v, %v)", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, 9, scope, "k9", 200, "{}", time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second live save: want ErrDuplicate, got %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, 10, scope, "k9", 200, "{}", time.Hour); err != nil {
		t.Fatalf("same key for another tenant: %v", err)
	}
}

func TestCreateIdempotency_ReplacesExpired(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	seedReply(t, db, "old", 3, "k", time.Now().UTC().Add(-time.Hour))

	rec, err := CreateIdempotency(context.Background(), db, 3, "/api/v1/chatbot/query", "k", 200, "new", time.Hour)
	if err != nil || rec.Body != "new" {
		t.Fatalf("create over expired = (%+v, %v)", rec, err)
	}
	var n int64
	db.Model(&domain.Idempotency{}).Where("user_id = 3").Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestCreateIdempotency_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateIdempotency(context.Background(), db, 1, "s", "k", 200, "{}", time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("want a plain storage error, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	seedReply(t, db, "a", 1, "k1", now.Add(-2*time.Hour))
	seedReply(t, db, "b", 2, "k2", now)
	seedReply(t, db, "c", 1, "k3", now.Add(time.Hour))

	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 2 {
		t.Fatalf("purge = (%d, %v), want 2", n, err)
	}
	if _, err := GetIdempotency(context.Background(), db, 1, "/api/v1/chatbot/query", "k3", now); err != nil {
		t.Fatalf("live reply must survive: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{errors.New("UNIQUE constraint failed: idempotency.user_id"), true},
		{errors.New("constraint failed: UNIQUE constraint failed (2067)"), true},
		{errors.New("no such table: idempotency"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("isUniqueViolation(%v) = %v", tc.err, got)
		}
	}
}
