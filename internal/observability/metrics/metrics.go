package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/smallbiznis/campus/internal/observability/metrics"

// Metrics exposes application-level counters.
type Metrics struct {
	webhookEvents     metric.Int64Counter
	counterBumpErrors metric.Int64Counter
	rateLimitRejects  metric.Int64Counter
	dashboardDegraded metric.Int64Counter
}

// New builds the application instrument set on the provided meter provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	webhookEvents, err := meter.Int64Counter("webhook_events_total",
		metric.WithDescription("Webhook events by provider and outcome"))
	if err != nil {
		return nil, err
	}
	counterBumpErrors, err := meter.Int64Counter("counter_bump_failures_total",
		metric.WithDescription("Failed best-effort counter adjustments"))
	if err != nil {
		return nil, err
	}
	rateLimitRejects, err := meter.Int64Counter("rate_limit_rejections_total",
		metric.WithDescription("Requests rejected by the rate limiter"))
	if err != nil {
		return nil, err
	}
	dashboardDegraded, err := meter.Int64Counter("dashboard_degraded_sections_total",
		metric.WithDescription("Dashboard sections served in degraded mode"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:     webhookEvents,
		counterBumpErrors: counterBumpErrors,
		rateLimitRejects:  rateLimitRejects,
		dashboardDegraded: dashboardDegraded,
	}, nil
}

// WebhookEvent records a webhook delivery outcome such as processed,
// duplicate, invalid_signature or failed.
func (m *Metrics) WebhookEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// CounterBumpFailed records a failed denormalized counter adjustment.
func (m *Metrics) CounterBumpFailed(ctx context.Context, entity, column string) {
	if m == nil {
		return
	}
	m.counterBumpErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("column", column),
	))
}

// RateLimitRejected records a request dropped by the rate limiter.
func (m *Metrics) RateLimitRejected(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.rateLimitRejects.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
	))
}

// DashboardDegraded records a dashboard section that fell back to zero values.
func (m *Metrics) DashboardDegraded(ctx context.Context, section string) {
	if m == nil {
		return
	}
	m.dashboardDegraded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("section", section),
	))
}
