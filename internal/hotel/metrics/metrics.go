package metrics

import (
	"context"
	"sync"

	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Lock counters
	LocksHeld      *telemetry.Counter
	LocksConfirmed *telemetry.Counter
	LocksReleased  *telemetry.Counter
	LocksExpired   *telemetry.Counter
	LockConflicts  *telemetry.Counter

	// Error tracking counters
	ErrorsTotal *telemetry.Counter

	// Histograms
	HoldToConfirmDuration *telemetry.Histogram
	SweepDuration         *telemetry.Histogram
	RequestDuration       *telemetry.Histogram

	// Gauges
	ActiveHolds *telemetry.UpDownCounter

	initOnce sync.Once
)

// Init initializes all hotel metrics
func Init() {
	initOnce.Do(initMetrics)
}

func initMetrics() {
	LocksHeld = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_locks_held_total",
		Description: "Total number of room holds created",
		Unit:        "1",
	})

	LocksConfirmed = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_locks_confirmed_total",
		Description: "Total number of room holds confirmed",
		Unit:        "1",
	})

	LocksReleased = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_locks_released_total",
		Description: "Total number of room holds released",
		Unit:        "1",
	})

	LocksExpired = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_locks_expired_total",
		Description: "Total number of room holds expired by the sweeper",
		Unit:        "1",
	})

	LockConflicts = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_lock_conflicts_total",
		Description: "Total number of holds rejected due to a date conflict",
		Unit:        "1",
	})

	ErrorsTotal = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "hotel_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})

	// Hold-to-confirm latency, 1s to 15min
	HoldToConfirmDuration = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "hotel_hold_to_confirm_duration_seconds",
		Description: "Duration from hold to confirmation",
		Unit:        "s",
	}, []float64{1, 5, 10, 30, 60, 120, 300, 600, 900})

	SweepDuration = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "hotel_sweep_duration_seconds",
		Description: "Duration of a single expiry sweep pass",
		Unit:        "s",
	}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10})

	// HTTP latency, 5ms to 10s
	RequestDuration = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "hotel_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})

	ActiveHolds = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "hotel_active_holds",
		Description: "Current number of unexpired holds",
		Unit:        "1",
	})
}

// RecordHold records a hold creation metric
func RecordHold(ctx context.Context, roomID string) {
	if LocksHeld != nil {
		LocksHeld.Inc(ctx,
			attribute.String("room_id", roomID),
		)
	}
	if ActiveHolds != nil {
		ActiveHolds.Inc(ctx)
	}
}

// RecordConfirmation records a hold confirmation metric
func RecordConfirmation(ctx context.Context, roomID string, durationSeconds float64) {
	if LocksConfirmed != nil {
		LocksConfirmed.Inc(ctx,
			attribute.String("room_id", roomID),
		)
	}
	if HoldToConfirmDuration != nil {
		HoldToConfirmDuration.Record(ctx, durationSeconds,
			attribute.String("room_id", roomID),
		)
	}
	if ActiveHolds != nil {
		ActiveHolds.Dec(ctx)
	}
}

// RecordRelease records a hold release metric
func RecordRelease(ctx context.Context, roomID string) {
	if LocksReleased != nil {
		LocksReleased.Inc(ctx,
			attribute.String("room_id", roomID),
		)
	}
	if ActiveHolds != nil {
		ActiveHolds.Dec(ctx)
	}
}

// RecordExpiration records holds expired by the sweeper
func RecordExpiration(ctx context.Context, count int64) {
	if LocksExpired != nil {
		LocksExpired.Add(ctx, count)
	}
	if ActiveHolds != nil {
		ActiveHolds.Add(ctx, -count)
	}
}

// RecordConflict records a hold rejected due to a date conflict
func RecordConflict(ctx context.Context, roomID string) {
	if LockConflicts != nil {
		LockConflicts.Inc(ctx,
			attribute.String("room_id", roomID),
		)
	}
}

// RecordSweep records the duration of an expiry sweep pass
func RecordSweep(ctx context.Context, durationSeconds float64) {
	if SweepDuration != nil {
		SweepDuration.Record(ctx, durationSeconds)
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
