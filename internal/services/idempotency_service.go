package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/repo"
)

// DefaultIdempotencyTTL is how long a stored reply can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// StoredReply is a previously returned HTTP response.
type StoredReply struct {
	Status int
	Body   string
}

// IdempotencyService stores and replays replies keyed by
// (tenant, scope, Idempotency-Key).
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Exists reports whether a live reply is stored. It matches the
// middleware.IdempotencyLookup signature.
func (s *IdempotencyService) Exists(ctx context.Context, tenant int64, scope, key string, now time.Time) (bool, error) {
	_, ok, err := s.Get(ctx, tenant, scope, key, now)
	return ok, err
}

// Get returns the stored reply, if any.
func (s *IdempotencyService) Get(ctx context.Context, tenant int64, scope, key string, now time.Time) (StoredReply, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, tenant, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return StoredReply{}, false, nil
	}
	if err != nil {
		return StoredReply{}, false, err
	}
	return StoredReply{Status: rec.Status, Body: rec.Body}, true, nil
}

// Save stores a reply. A concurrent save of the same key is not an error:
// the first writer wins and both callers already hold the same reply.
func (s *IdempotencyService) Save(ctx context.Context, tenant int64, scope, key string, r StoredReply) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, tenant, scope, key, r.Status, r.Body, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Purge deletes replies that expired at or before now.
func (s *IdempotencyService) Purge(ctx context.Context, now time.Time) (int64, error) {
	return repo.PurgeExpiredIdempotency(ctx, s.DB, now)
}

// RunSweeper purges expired replies every interval until ctx is done. Purge
// failures are logged and retried on the next tick.
func (s *IdempotencyService) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n, err := s.Purge(ctx, now.UTC())
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				zerolog.Ctx(ctx).Debug().Int64("purged", n).Msg("expired idempotency replies removed")
			}
		}
	}
}
