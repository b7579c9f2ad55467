package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"teenpatti/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider owns the OpenTelemetry meter and the engine's instruments.
// All Record methods are safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	roundsStartedCounter      metric.Int64Counter
	roundsFinalizedCounter    metric.Int64Counter
	betsPlacedCounter         metric.Int64Counter
	betsRejectedCounter       metric.Int64Counter
	betsSettledCounter        metric.Int64Counter
	stakeAmountHist           metric.Float64Histogram
	settlementFailuresCounter metric.Int64Counter
	settlementDurationHist    metric.Float64Histogram
	eventsPublishedCounter    metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{config: cfg}
}

// Initialize builds the meter provider with the configured exporter
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.setup(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized")
	return nil
}

// InitializeWithReader wires the provider to a caller supplied reader, such as a ManualReader in tests
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}
	return mp.setup(reader)
}

func (mp *MetricsProvider) setup(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("teenpatti")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.roundsStartedCounter, RoundsStartedTotal, "Total number of rounds dealt"},
		{&mp.roundsFinalizedCounter, RoundsFinalizedTotal, "Total number of rounds finalized"},
		{&mp.betsPlacedCounter, BetsPlacedTotal, "Total number of accepted bets"},
		{&mp.betsRejectedCounter, BetsRejectedTotal, "Total number of rejected bet placements"},
		{&mp.betsSettledCounter, BetsSettledTotal, "Total number of settled bets"},
		{&mp.settlementFailuresCounter, SettlementFailuresTotal, "Total number of bets that failed to settle"},
		{&mp.eventsPublishedCounter, EventsPublishedTotal, "Total number of events published to NATS"},
	}
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	mp.stakeAmountHist, err = mp.meter.Float64Histogram(
		StakeAmount,
		metric.WithDescription("Accepted stake amounts"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000),
	)
	if err != nil {
		return fmt.Errorf("failed to create stake amount histogram: %w", err)
	}

	mp.settlementDurationHist, err = mp.meter.Float64Histogram(
		SettlementDuration,
		metric.WithDescription("Time to persist and settle one finished round in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) RecordRoundStarted() {
	if !mp.isEnabled() {
		return
	}
	mp.roundsStartedCounter.Add(context.Background(), 1)
}

func (mp *MetricsProvider) RecordRoundFinalized(winner string) {
	if !mp.isEnabled() {
		return
	}
	mp.roundsFinalizedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelWinner, winner)),
	)
}

// RecordBetPlaced records an accepted stake
func (mp *MetricsProvider) RecordBetPlaced(side string, stake float64) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelSide, side))
	mp.betsPlacedCounter.Add(context.Background(), 1, attrs)
	mp.stakeAmountHist.Record(context.Background(), stake, attrs)
}

// RecordBetRejected records a refused placement by error code
func (mp *MetricsProvider) RecordBetRejected(code string) {
	if !mp.isEnabled() {
		return
	}
	mp.betsRejectedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelErrorCode, code)),
	)
}

func (mp *MetricsProvider) RecordBetSettled(status string) {
	if !mp.isEnabled() {
		return
	}
	mp.betsSettledCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelStatus, status)),
	)
}

func (mp *MetricsProvider) RecordSettlementFailure() {
	if !mp.isEnabled() {
		return
	}
	mp.settlementFailuresCounter.Add(context.Background(), 1)
}

// RecordSettlementDuration records how long a round took to finalize
func (mp *MetricsProvider) RecordSettlementDuration(d time.Duration) {
	if !mp.isEnabled() {
		return
	}
	mp.settlementDurationHist.Record(context.Background(), d.Seconds())
}

func (mp *MetricsProvider) RecordEventPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled reports whether instruments exist. A "none" exporter leaves them unset.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, or nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
