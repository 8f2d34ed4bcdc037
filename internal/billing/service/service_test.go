package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/clock"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "whsec_test"

type fixture struct {
	svc           domain.Service
	gdb           *gorm.DB
	subscriptions repository.Store[domain.Subscription]
	clk           *clock.Fake
	guard         domain.Guard
}

func setup(t *testing.T) fixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&domain.Subscription{}, &domain.BillingEvent{}, &domain.IdempotencyRecord{},
	))

	subscriptions := repository.ProvideStore[domain.Subscription, *domain.Subscription](gdb, repository.Config{
		PatchColumns: []string{"plan", "status", "current_period_end"},
	})
	clk := clock.NewFake(time.Now().UTC())
	guard := NewDatabaseGuard(gdb, clk)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	m, err := metrics.New(noop.NewMeterProvider())
	require.NoError(t, err)

	svc := New(Config{
		Secrets:        map[string]string{"stripe": testSecret},
		Guard:          guard,
		IdempotencyTTL: time.Hour,
		Subscriptions:  subscriptions,
		DB:             gdb,
		Node:           node,
		IDs:            id.NewGenerator(),
		Clock:          clk,
		Metrics:        m,
	})
	return fixture{svc: svc, gdb: gdb, subscriptions: subscriptions, clk: clk, guard: guard}
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func createdEvent() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "subscription.created",
		"data": {
			"tenant_id": "t1",
			"subscription_id": "sub_1",
			"plan": "premium",
			"status": "active"
		}
	}`)
}

func TestDeliveredTwiceAppliesOnce(t *testing.T) {
	f := setup(t)
	payload := createdEvent()

	event, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)

	// Second delivery answers success without reapplying.
	_, err = f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)

	var count int64
	require.NoError(t, f.gdb.Model(&domain.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBadSignatureRejected(t *testing.T) {
	f := setup(t)
	payload := createdEvent()

	_, err := f.svc.HandleWebhook(context.Background(), "stripe", "sha256=deadbeef", payload)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = f.svc.HandleWebhook(context.Background(), "stripe", "", payload)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	var count int64
	require.NoError(t, f.gdb.Model(&domain.BillingEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnknownProvider(t *testing.T) {
	f := setup(t)
	payload := createdEvent()

	_, err := f.svc.HandleWebhook(context.Background(), "paddle", sign(payload), payload)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestMalformedEvent(t *testing.T) {
	f := setup(t)

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type": "subscription.created"}`),
	} {
		_, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
		assert.ErrorIs(t, err, domain.ErrMalformedEvent)
	}
}

func TestUpdateAndCancelFlow(t *testing.T) {
	f := setup(t)

	payload := createdEvent()
	_, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
	require.NoError(t, err)

	update := []byte(`{
		"id": "evt_2",
		"type": "subscription.updated",
		"data": {"tenant_id": "t1", "subscription_id": "sub_1", "plan": "enterprise"}
	}`)
	_, err = f.svc.HandleWebhook(context.Background(), "stripe", sign(update), update)
	require.NoError(t, err)

	cancel := []byte(`{
		"id": "evt_3",
		"type": "subscription.canceled",
		"data": {"tenant_id": "t1", "subscription_id": "sub_1"}
	}`)
	_, err = f.svc.HandleWebhook(context.Background(), "stripe", sign(cancel), cancel)
	require.NoError(t, err)

	var subscription domain.Subscription
	require.NoError(t, f.gdb.Where("tenant_id = ?", "t1").First(&subscription).Error)
	assert.Equal(t, "enterprise", subscription.Plan)
	assert.Equal(t, domain.SubscriptionCanceled, subscription.Status)
	assert.Equal(t, int64(3), subscription.Version)
}

func TestStoredPayloadIsCompressed(t *testing.T) {
	f := setup(t)
	payload := createdEvent()

	_, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
	require.NoError(t, err)

	var record domain.BillingEvent
	require.NoError(t, f.gdb.First(&record).Error)

	decoded, err := snappy.Decode(nil, record.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(decoded))
}

func TestGuardExpiryAllowsReprocessing(t *testing.T) {
	f := setup(t)
	payload := createdEvent()

	_, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(payload), payload)
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)

	processed, err := f.guard.Processed(context.Background(), "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, processed, "expired mark must not block redelivery")
}

func TestUpdateForUnseenSubscriptionCreatesIt(t *testing.T) {
	f := setup(t)

	update := []byte(`{
		"id": "evt_9",
		"type": "subscription.updated",
		"data": {"tenant_id": "t2", "subscription_id": "sub_9", "plan": "basic", "status": "active"}
	}`)
	_, err := f.svc.HandleWebhook(context.Background(), "stripe", sign(update), update)
	require.NoError(t, err)

	var subscription domain.Subscription
	require.NoError(t, f.gdb.Where("tenant_id = ?", "t2").First(&subscription).Error)
	assert.Equal(t, "basic", subscription.Plan)
	assert.Equal(t, "active", subscription.Status)
}
