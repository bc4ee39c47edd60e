package metrics

import (
	"context"
	"sync"

	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Reservation counters
	ReservationsCreated   *telemetry.Counter
	ReservationsConfirmed *telemetry.Counter
	ReservationsCancelled *telemetry.Counter

	// Gateway counters
	GatewayAttempts *telemetry.Counter
	GatewayFailures *telemetry.Counter

	// Saga recovery counters
	SagasRecovered *telemetry.Counter

	// Error tracking counters
	ErrorsTotal *telemetry.Counter

	// Histograms
	SagaDuration    *telemetry.Histogram
	RequestDuration *telemetry.Histogram

	initOnce sync.Once
)

// Init initializes all booking metrics
func Init() {
	initOnce.Do(initMetrics)
}

func initMetrics() {
	ReservationsCreated = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_reservations_created_total",
		Description: "Total number of reservations entered into the saga",
		Unit:        "1",
	})

	ReservationsConfirmed = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_reservations_confirmed_total",
		Description: "Total number of reservations confirmed",
		Unit:        "1",
	})

	ReservationsCancelled = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_reservations_cancelled_total",
		Description: "Total number of reservations cancelled after compensation",
		Unit:        "1",
	})

	GatewayAttempts = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_gateway_attempts_total",
		Description: "Total number of hotel gateway call attempts including retries",
		Unit:        "1",
	})

	GatewayFailures = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_gateway_failures_total",
		Description: "Total number of hotel gateway calls that failed after retries",
		Unit:        "1",
	})

	SagasRecovered = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_sagas_recovered_total",
		Description: "Total number of saga instances re-driven by the recovery worker",
		Unit:        "1",
	})

	ErrorsTotal = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})

	// Saga wall time, dominated by the two hotel calls
	SagaDuration = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "booking_saga_duration_seconds",
		Description: "Duration of a reservation saga from entry to terminal status",
		Unit:        "s",
	}, []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60})

	// HTTP latency, 5ms to 10s
	RequestDuration = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "booking_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
}

// RecordReservationCreated records a reservation entering the saga
func RecordReservationCreated(ctx context.Context, roomID string) {
	if ReservationsCreated != nil {
		ReservationsCreated.Inc(ctx,
			attribute.String("room_id", roomID),
		)
	}
}

// RecordReservationOutcome records the terminal status of a saga run
func RecordReservationOutcome(ctx context.Context, status string, durationSeconds float64) {
	switch status {
	case "CONFIRMED":
		if ReservationsConfirmed != nil {
			ReservationsConfirmed.Inc(ctx)
		}
	case "CANCELLED":
		if ReservationsCancelled != nil {
			ReservationsCancelled.Inc(ctx)
		}
	}
	if SagaDuration != nil {
		SagaDuration.Record(ctx, durationSeconds,
			attribute.String("status", status),
		)
	}
}

// RecordGatewayCall records the attempt count and outcome of a gateway call
func RecordGatewayCall(ctx context.Context, operation string, attempts int, failed bool) {
	if GatewayAttempts != nil {
		GatewayAttempts.Add(ctx, int64(attempts),
			attribute.String("operation", operation),
		)
	}
	if failed && GatewayFailures != nil {
		GatewayFailures.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
}

// RecordSagaRecovered records a saga instance re-driven after a crash
func RecordSagaRecovered(ctx context.Context, status string) {
	if SagasRecovered != nil {
		SagasRecovered.Inc(ctx,
			attribute.String("resumed_from", status),
		)
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records HTTP request duration
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
}
