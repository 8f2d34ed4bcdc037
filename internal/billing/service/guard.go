package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func guardKey(provider, eventID string) string {
	return provider + ":" + eventID
}

// dbGuard keeps idempotency records in the relational store. Expired rows
// are purged lazily on lookup.
type dbGuard struct {
	gdb *gorm.DB
	clk clock.Clock
}

// NewDatabaseGuard builds a Guard over the idempotency_records table.
func NewDatabaseGuard(gdb *gorm.DB, clk clock.Clock) domain.Guard {
	return &dbGuard{gdb: gdb, clk: clk}
}

func (g *dbGuard) Processed(ctx context.Context, provider, eventID string) (bool, error) {
	now := g.clk.Now()
	key := guardKey(provider, eventID)

	g.gdb.WithContext(ctx).
		Where("key = ? AND expires_at <= ?", key, now).
		Delete(&domain.IdempotencyRecord{})

	var record domain.IdempotencyRecord
	err := g.gdb.WithContext(ctx).Where("key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.ExpiresAt.After(now), nil
}

func (g *dbGuard) Mark(ctx context.Context, provider, eventID string, ttl time.Duration) error {
	now := g.clk.Now()
	record := domain.IdempotencyRecord{
		Key:         guardKey(provider, eventID),
		ProcessedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
	return g.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
}

// redisGuard keeps idempotency marks as expiring redis keys.
type redisGuard struct {
	rdb *redis.Client
}

// NewRedisGuard builds a Guard over redis.
func NewRedisGuard(rdb *redis.Client) domain.Guard {
	return &redisGuard{rdb: rdb}
}

func (g *redisGuard) key(provider, eventID string) string {
	return fmt.Sprintf("webhook:idempotency:%s:%s", provider, eventID)
}

func (g *redisGuard) Processed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := g.rdb.Exists(ctx, g.key(provider, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *redisGuard) Mark(ctx context.Context, provider, eventID string, ttl time.Duration) error {
	return g.rdb.Set(ctx, g.key(provider, eventID), "1", ttl).Err()
}
