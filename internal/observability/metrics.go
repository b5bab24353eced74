package observability

import (
	"context"
	"fmt"
	"time"

	"referral_contest/internal/model"
	"referral_contest/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

const (
	EventsTotal              = "contest_events_total"
	ReferralPointsTotal      = "contest_referral_points_total"
	UsersBannedTotal         = "contest_users_banned_total"
	BroadcastDeliveriesTotal = "contest_broadcast_deliveries_total"

	LabelType   = "type"
	LabelReason = "reason"
	LabelResult = "result"

	defaultServiceName = "referral-contest-bot"
	defaultInterval    = time.Minute
)

type Config struct {
	Enabled     bool          `yaml:"enabled"`
	ServiceName string        `yaml:"serviceName"`
	Interval    time.Duration `yaml:"interval"`
}

// Metrics turns domain events into OpenTelemetry counters.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	events     metric.Int64Counter
	points     metric.Int64Counter
	bans       metric.Int64Counter
	deliveries metric.Int64Counter
}

// NewMetrics exports to stdout every cfg.Interval.
func NewMetrics(cfg Config) (*Metrics, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create console exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	m, err := newMetrics(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	otel.SetMeterProvider(m.provider)
	logger.Logger().Info("metrics provider initialized", zap.Duration("interval", interval))
	return m, nil
}

func newMetrics(reader sdkmetric.Reader, serviceName string) (*Metrics, error) {
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	m := &Metrics{
		provider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		),
	}

	if err := m.createInstruments(m.provider.Meter(serviceName)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createInstruments(meter metric.Meter) error {
	var err error

	m.events, err = meter.Int64Counter(EventsTotal,
		metric.WithDescription("Domain events by type"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create events counter: %w", err)
	}

	m.points, err = meter.Int64Counter(ReferralPointsTotal,
		metric.WithDescription("Points awarded for verified referrals"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create referral points counter: %w", err)
	}

	m.bans, err = meter.Int64Counter(UsersBannedTotal,
		metric.WithDescription("Users banned by the anti-cheat detector"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create bans counter: %w", err)
	}

	m.deliveries, err = meter.Int64Counter(BroadcastDeliveriesTotal,
		metric.WithDescription("Broadcast messages by delivery result"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create deliveries counter: %w", err)
	}

	return nil
}

func (m *Metrics) Publish(ctx context.Context, event model.Event) error {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(event.Type))))

	switch event.Type {
	case model.EventReferralAwarded:
		if n, ok := intValue(event.Payload["awarded"]); ok {
			m.points.Add(ctx, n)
		}
	case model.EventUserBanned:
		reason, _ := event.Payload["reason"].(string)
		m.bans.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelReason, reason)))
	case model.EventBroadcastCompleted:
		if n, ok := intValue(event.Payload["sent"]); ok {
			m.deliveries.Add(ctx, n, metric.WithAttributes(attribute.String(LabelResult, "sent")))
		}
		if n, ok := intValue(event.Payload["failed"]); ok {
			m.deliveries.Add(ctx, n, metric.WithAttributes(attribute.String(LabelResult, "failed")))
		}
	}

	return nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
