package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/campus/pkg/repository"
)

var (
	// ErrUnknownProvider means no webhook secret is configured for the
	// provider path segment.
	ErrUnknownProvider = errors.New("unknown_provider")
	// ErrInvalidSignature means the payload HMAC did not match.
	ErrInvalidSignature = errors.New("invalid_signature")
	// ErrMalformedEvent means the payload could not be decoded or lacks an
	// event id.
	ErrMalformedEvent = errors.New("malformed_event")
	// ErrEventAlreadyProcessed means the idempotency guard has seen this
	// event id. Handlers answer success without reprocessing.
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

// Subscription statuses carried in webhook events.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// WebhookEvent is the decoded envelope of a provider delivery.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData carries the subscription mutation. The tenant comes from
// the provider's notion of the customer organization; webhook calls carry no
// end-user identity.
type WebhookEventData struct {
	TenantID       string `json:"tenant_id"`
	SubscriptionID string `json:"subscription_id"`
	Plan           string `json:"plan"`
	Status         string `json:"status"`
	PeriodEnd      string `json:"current_period_end"`
}

// Subscription is the tenant's billing entitlement, mutated only by
// webhook deliveries.
type Subscription struct {
	repository.Base
	Provider         string     `gorm:"size:32;not null;index" json:"provider"`
	ExternalID       string     `gorm:"size:64;not null;index" json:"external_id"`
	Plan             string     `gorm:"size:32;not null" json:"plan"`
	Status           string     `gorm:"size:16;not null" json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

func (Subscription) TableName() string { return "subscriptions" }

// BillingEvent is the audit record of one accepted delivery. The raw
// payload is stored snappy-compressed.
type BillingEvent struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantID   string    `gorm:"size:64;index" json:"tenant_id"`
	Provider   string    `gorm:"size:32;not null;uniqueIndex:idx_billing_provider_event" json:"provider"`
	EventID    string    `gorm:"size:128;not null;uniqueIndex:idx_billing_provider_event" json:"event_id"`
	EventType  string    `gorm:"size:64;not null" json:"event_type"`
	Payload    []byte    `gorm:"type:blob" json:"-"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
}

func (BillingEvent) TableName() string { return "billing_events" }

// IdempotencyRecord marks an already-processed external event. Rows expire
// by TTL; the database guard purges them lazily.
type IdempotencyRecord struct {
	Key         string    `gorm:"primaryKey;size:192" json:"key"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }

// Guard answers whether an external event was already processed and marks
// it once handled. Check and mark are two calls by design: the business
// mutation sits between them, and a crash in that window re-delivers the
// event rather than dropping it.
type Guard interface {
	Processed(ctx context.Context, provider, eventID string) (bool, error)
	Mark(ctx context.Context, provider, eventID string, ttl time.Duration) error
}

// Service handles signed provider deliveries.
type Service interface {
	// HandleWebhook verifies, deduplicates and applies one delivery.
	// ErrEventAlreadyProcessed still answers HTTP success.
	HandleWebhook(ctx context.Context, provider string, signature string, payload []byte) (*WebhookEvent, error)
}
