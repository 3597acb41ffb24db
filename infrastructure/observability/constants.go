package observability

// Metric name prefixes
const (
	MetricPrefix = "rifei"
)

// Metric names
const (
	// Domain event metrics
	DomainEventsTotal = MetricPrefix + ".events.total"

	// Reservation metrics
	ReservationConflictsTotal = MetricPrefix + ".reservations.conflicts_total"
	ExpiredTotal              = MetricPrefix + ".sweeps.expired_total"

	// Webhook metrics
	WebhookDeliveriesTotal = MetricPrefix + ".webhooks.deliveries_total"

	// Storage metrics
	StorageRetriesTotal = MetricPrefix + ".storage.retries_total"

	// HTTP metrics
	HTTPRequestDuration = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelOperation = "operation"
	LabelRoute     = "route"
	LabelMethod    = "method"
	LabelStatus    = "status"
)

// Sweep kinds
const (
	SweepReservation = "reservation"
	SweepPayment     = "payment"
)
