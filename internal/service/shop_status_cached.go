package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.uber.org/zap"
)

const ShopStatusCacheKey = "shop_status:current"

const invalidateAttempts = 3

// fillScript stores a status only when it is at least as new as the cached one.
// KEYS[1] hash key, ARGV[1] version (updated_at in microseconds), ARGV[2] payload,
// ARGV[3] ttl in milliseconds.
var fillScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type cachedShopStatusService struct {
	next   ShopStatusService
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedShopStatusService serves GetStatus from redis for up to ttl. Entries are
// versioned by updated_at, so a reader that loaded the row before a write cannot
// overwrite the state SetStatus stored after it. Redis read failures fall back to next.
func NewCachedShopStatusService(next ShopStatusService, client *redis.Client, ttl time.Duration, logger *zap.Logger) ShopStatusService {
	return &cachedShopStatusService{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *cachedShopStatusService) GetStatus(ctx context.Context) (*domain.ShopStatus, error) {
	raw, err := s.client.HGet(ctx, ShopStatusCacheKey, "d").Bytes()
	switch {
	case err == nil:
		var status domain.ShopStatus
		decodeErr := json.Unmarshal(raw, &status)
		if decodeErr == nil {
			return &status, nil
		}
		mylogger.Warn(ctx, s.logger, "Corrupt shop status cache entry", zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		mylogger.Warn(ctx, s.logger, "Shop status cache read failed", zap.Error(err))
	}

	status, err := s.next.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.fill(ctx, status); err != nil {
		mylogger.Warn(ctx, s.logger, "Shop status cache write failed", zap.Error(err))
	}

	return status, nil
}

// SetStatus stores the committed state in the cache. When that fails the entry is
// dropped instead, and an entry that cannot be dropped either is reported as a
// storage error because readers would keep seeing the previous state.
func (s *cachedShopStatusService) SetStatus(ctx context.Context, caller domain.Caller, t domain.StatusTransition) error {
	if err := s.next.SetStatus(ctx, caller, t); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			// the outcome of the write is unknown
			_ = s.invalidate(ctx)
		}
		return err
	}

	status, err := s.next.GetStatus(ctx)
	if err == nil {
		_, err = s.fill(ctx, status)
	}
	if err == nil {
		return nil
	}

	mylogger.Warn(ctx, s.logger, "Failed to refresh shop status cache", zap.Error(err))

	if err := s.invalidate(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to invalidate shop status cache", zap.Error(err))
		return fmt.Errorf("%w: shop status saved but cache still holds the previous state: %w", domain.ErrStorage, err)
	}

	return nil
}

// fill reports whether status replaced the cached entry.
func (s *cachedShopStatusService) fill(ctx context.Context, status *domain.ShopStatus) (bool, error) {
	payload, err := json.Marshal(status)
	if err != nil {
		return false, err
	}

	stored, err := fillScript.Run(
		ctx,
		s.client,
		[]string{ShopStatusCacheKey},
		status.UpdatedAt.UnixMicro(),
		payload,
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}

	return stored == 1, nil
}

func (s *cachedShopStatusService) invalidate(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= invalidateAttempts; attempt++ {
		if err = s.client.Del(ctx, ShopStatusCacheKey).Err(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}

	return err
}
