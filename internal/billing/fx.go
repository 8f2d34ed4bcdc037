package billing

import (
	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/billing/service"
	"github.com/smallbiznis/campus/internal/clock"
	"github.com/smallbiznis/campus/internal/config"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewSubscriptionStore builds the subscriptions store.
func NewSubscriptionStore(gdb *gorm.DB) repository.Store[domain.Subscription] {
	return repository.ProvideStore[domain.Subscription, *domain.Subscription](gdb, repository.Config{
		PatchColumns: []string{"plan", "status", "current_period_end"},
	})
}

// NewGuard selects the idempotency backend. Redis is used only when both
// configured and reachable at startup wiring time.
func NewGuard(cfg config.Config, gdb *gorm.DB, rdb *redis.Client, clk clock.Clock, log *zap.Logger) domain.Guard {
	if cfg.IdempotencyBackend == config.IdempotencyBackendRedis && rdb != nil {
		log.Info("webhook idempotency guard using redis")
		return service.NewRedisGuard(rdb)
	}
	if cfg.IdempotencyBackend == config.IdempotencyBackendRedis {
		log.Warn("redis idempotency backend configured without REDIS_ADDR, falling back to database")
	}
	return service.NewDatabaseGuard(gdb, clk)
}

func newNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// Params collects the webhook service dependencies.
type Params struct {
	fx.In

	Config        config.Config
	Guard         domain.Guard
	Subscriptions repository.Store[domain.Subscription]
	DB            *gorm.DB
	Node          *snowflake.Node
	IDs           id.Generator
	Clock         clock.Clock
	Metrics       *metrics.Metrics
}

// Module wires the billing webhooks feature.
var Module = fx.Module("billing",
	fx.Provide(NewSubscriptionStore),
	fx.Provide(NewGuard),
	fx.Provide(newNode),
	fx.Provide(func(p Params) domain.Service {
		return service.New(service.Config{
			Secrets:        p.Config.WebhookSecrets,
			Guard:          p.Guard,
			IdempotencyTTL: p.Config.IdempotencyTTL,
			Subscriptions:  p.Subscriptions,
			DB:             p.DB,
			Node:           p.Node,
			IDs:            p.IDs,
			Clock:          p.Clock,
			Metrics:        p.Metrics,
		})
	}),
)
