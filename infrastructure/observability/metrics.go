package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"rifei/config"
	"rifei/domain/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	domainEventsCounter         metric.Int64Counter
	reservationConflictsCounter metric.Int64Counter
	expiredCounter              metric.Int64Counter
	webhookDeliveriesCounter    metric.Int64Counter
	storageRetriesCounter       metric.Int64Counter
	httpRequestDurationHist     metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporter {
	case "", "none":
		log.Info("Metrics export disabled")
		mp.initialized = true
		return nil

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
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelEndpoint).Info("Using OTLP metric exporter")

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporter)
	}

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
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mp.config.OTelExportInterval)),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.createInstruments(mp.meterProvider.Meter("rifei")); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// InitializeWithReader sets up instruments on a caller supplied reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	if err := mp.createInstruments(mp.meterProvider.Meter("rifei")); err != nil {
		return err
	}
	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments(meter metric.Meter) error {
	var err error
	mp.meter = meter

	mp.domainEventsCounter, err = meter.Int64Counter(
		DomainEventsTotal,
		metric.WithDescription("Committed domain events by type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create domain events counter: %w", err)
	}

	mp.reservationConflictsCounter, err = meter.Int64Counter(
		ReservationConflictsTotal,
		metric.WithDescription("Reservations rejected because numbers were taken"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation conflicts counter: %w", err)
	}

	mp.expiredCounter, err = meter.Int64Counter(
		ExpiredTotal,
		metric.WithDescription("Reservations and payments expired by the sweep"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create expired counter: %w", err)
	}

	mp.webhookDeliveriesCounter, err = meter.Int64Counter(
		WebhookDeliveriesTotal,
		metric.WithDescription("Gateway webhook deliveries by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook deliveries counter: %w", err)
	}

	mp.storageRetriesCounter, err = meter.Int64Counter(
		StorageRetriesTotal,
		metric.WithDescription("Transactions retried after a storage conflict"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create storage retries counter: %w", err)
	}

	mp.httpRequestDurationHist, err = meter.Float64Histogram(
		HTTPRequestDuration,
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordDomainEvent counts a committed domain event
func (mp *MetricsProvider) RecordDomainEvent(eventType events.EventType) {
	if !mp.isEnabled() {
		return
	}

	mp.domainEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, string(eventType))),
	)
}

// RecordReservationConflict counts a reservation that lost numbers
func (mp *MetricsProvider) RecordReservationConflict() {
	if !mp.isEnabled() {
		return
	}

	mp.reservationConflictsCounter.Add(context.Background(), 1)
}

// RecordExpired counts rows moved out of pending by a sweep
func (mp *MetricsProvider) RecordExpired(kind string, count int) {
	if !mp.isEnabled() || count == 0 {
		return
	}

	mp.expiredCounter.Add(context.Background(), int64(count),
		metric.WithAttributes(attribute.String(LabelType, kind)),
	)
}

// RecordWebhookDelivery counts a webhook delivery by its outcome
func (mp *MetricsProvider) RecordWebhookDelivery(outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.webhookDeliveriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordStorageRetry counts a retried transaction
func (mp *MetricsProvider) RecordStorageRetry(operation string) {
	if !mp.isEnabled() {
		return
	}

	mp.storageRetriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordHTTPRequest records the duration of a served request
func (mp *MetricsProvider) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.httpRequestDurationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelRoute, route),
			attribute.String(LabelMethod, method),
			attribute.String(LabelStatus, strconv.Itoa(status)),
		),
	)
}

// EventHandler returns a local event handler that counts events
func (mp *MetricsProvider) EventHandler() func(context.Context, events.Event) error {
	return func(ctx context.Context, event events.Event) error {
		mp.RecordDomainEvent(event.Type())
		return nil
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
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

// GetMetrics returns the global metrics provider. Recording on a nil provider is a no-op.
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
