package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/clock"
	"github.com/smallbiznis/campus/internal/observability/logger"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type webhookService struct {
	secrets       map[string]string
	guard         domain.Guard
	ttl           time.Duration
	subscriptions repository.Store[domain.Subscription]
	gdb           *gorm.DB
	node          *snowflake.Node
	ids           id.Generator
	clk           clock.Clock
	metrics       *metrics.Metrics
}

// Config assembles the webhook pipeline dependencies.
type Config struct {
	Secrets        map[string]string
	Guard          domain.Guard
	IdempotencyTTL time.Duration
	Subscriptions  repository.Store[domain.Subscription]
	DB             *gorm.DB
	Node           *snowflake.Node
	IDs            id.Generator
	Clock          clock.Clock
	Metrics        *metrics.Metrics
}

// New builds the webhook service.
func New(cfg Config) domain.Service {
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &webhookService{
		secrets:       cfg.Secrets,
		guard:         cfg.Guard,
		ttl:           ttl,
		subscriptions: cfg.Subscriptions,
		gdb:           cfg.DB,
		node:          cfg.Node,
		ids:           cfg.IDs,
		clk:           cfg.Clock,
		metrics:       cfg.Metrics,
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, provider, signature string, payload []byte) (*domain.WebhookEvent, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	secret, ok := s.secrets[provider]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}

	if !verifySignature(secret, signature, payload) {
		s.metrics.WebhookEvent(ctx, provider, "invalid_signature")
		return nil, domain.ErrInvalidSignature
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, fmt.Errorf("%w: missing event id", domain.ErrMalformedEvent)
	}

	processed, err := s.guard.Processed(ctx, provider, event.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		s.metrics.WebhookEvent(ctx, provider, "duplicate")
		logger.FromContext(ctx).Info("duplicate webhook delivery",
			zap.String("provider", provider),
			zap.String("event_id", event.ID),
		)
		return &event, domain.ErrEventAlreadyProcessed
	}

	if err := s.recordEvent(ctx, provider, &event, payload); err != nil {
		return nil, err
	}
	if err := s.applyEvent(ctx, provider, &event); err != nil {
		s.metrics.WebhookEvent(ctx, provider, "failed")
		return nil, err
	}

	// Marking after the mutation means a crash in between re-delivers the
	// event; reprocessing is preferred over dropping it.
	if err := s.guard.Mark(ctx, provider, event.ID, s.ttl); err != nil {
		logger.FromContext(ctx).Error("idempotency mark failed",
			zap.String("provider", provider),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	s.metrics.WebhookEvent(ctx, provider, "processed")
	return &event, nil
}

func verifySignature(secret, signature string, payload []byte) bool {
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return false
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(given, mac.Sum(nil))
}

// recordEvent appends the delivery to the audit table. Replayed inserts of
// the same (provider, event id) are tolerated: the guard is authoritative
// for deduplication, this table is for audit.
func (s *webhookService) recordEvent(ctx context.Context, provider string, event *domain.WebhookEvent, payload []byte) error {
	record := domain.BillingEvent{
		ID:         s.node.Generate().Int64(),
		TenantID:   event.Data.TenantID,
		Provider:   provider,
		EventID:    event.ID,
		EventType:  event.Type,
		Payload:    snappy.Encode(nil, payload),
		ReceivedAt: s.clk.Now(),
	}
	err := s.gdb.WithContext(ctx).Create(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}

func (s *webhookService) applyEvent(ctx context.Context, provider string, event *domain.WebhookEvent) error {
	data := event.Data
	if strings.TrimSpace(data.TenantID) == "" {
		return fmt.Errorf("%w: missing tenant id", domain.ErrMalformedEvent)
	}

	switch event.Type {
	case "subscription.created":
		return s.upsertSubscription(ctx, provider, data, domain.SubscriptionActive)
	case "subscription.updated":
		return s.upsertSubscription(ctx, provider, data, "")
	case "subscription.canceled", "subscription.deleted":
		return s.cancelSubscription(ctx, provider, data)
	default:
		logger.FromContext(ctx).Info("unhandled webhook event type",
			zap.String("provider", provider),
			zap.String("event_type", event.Type),
		)
		return nil
	}
}

func (s *webhookService) upsertSubscription(ctx context.Context, provider string, data domain.WebhookEventData, defaultStatus string) error {
	if strings.TrimSpace(data.SubscriptionID) == "" {
		return fmt.Errorf("%w: missing subscription id", domain.ErrMalformedEvent)
	}

	status := strings.TrimSpace(data.Status)
	if status == "" {
		status = defaultStatus
	}

	existing, err := s.findByExternalID(ctx, data.TenantID, provider, data.SubscriptionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if existing == nil {
		subscription := &domain.Subscription{
			Base: repository.Base{
				ID:       s.ids.NewID(),
				TenantID: data.TenantID,
				AuthorID: "billing:" + provider,
			},
			Provider:   provider,
			ExternalID: data.SubscriptionID,
			Plan:       strings.TrimSpace(data.Plan),
			Status:     status,
		}
		if end := parsePeriodEnd(data.PeriodEnd); end != nil {
			subscription.CurrentPeriodEnd = end
		}
		if status == "" {
			subscription.Status = domain.SubscriptionActive
		}
		_, err := s.subscriptions.Create(ctx, subscription)
		return err
	}

	patch := map[string]any{}
	if plan := strings.TrimSpace(data.Plan); plan != "" {
		patch["plan"] = plan
	}
	if status != "" {
		patch["status"] = status
	}
	if end := parsePeriodEnd(data.PeriodEnd); end != nil {
		patch["current_period_end"] = *end
	}
	if len(patch) == 0 {
		return nil
	}
	_, err = s.subscriptions.Update(ctx, data.TenantID, existing.ID, "", patch)
	return err
}

func (s *webhookService) cancelSubscription(ctx context.Context, provider string, data domain.WebhookEventData) error {
	existing, err := s.findByExternalID(ctx, data.TenantID, provider, data.SubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Cancel for a subscription never seen: nothing to do.
			return nil
		}
		return err
	}
	_, err = s.subscriptions.Update(ctx, data.TenantID, existing.ID, "", map[string]any{
		"status": domain.SubscriptionCanceled,
	})
	return err
}

func (s *webhookService) findByExternalID(ctx context.Context, tenantID, provider, externalID string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := s.gdb.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND external_id = ?", tenantID, provider, externalID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func parsePeriodEnd(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
