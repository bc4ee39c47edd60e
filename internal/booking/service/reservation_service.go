package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/internal/booking/dto"
	"github.com/Plvkssh/SmartLodge/internal/booking/gateway"
	"github.com/Plvkssh/SmartLodge/internal/booking/metrics"
	"github.com/Plvkssh/SmartLodge/internal/booking/repository"
	"github.com/Plvkssh/SmartLodge/internal/booking/saga"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/retry"
	pkgsaga "github.com/Plvkssh/SmartLodge/pkg/saga"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

// compensationTopic is the logical topic for saga work that could not be
// unwound; the DLQ publisher derives the dead-letter topic from it.
const compensationTopic = "booking-saga-compensations"

// Machine-readable reasons attached to dead-lettered saga work
const (
	reasonCompensationFailed = "COMPENSATION_FAILED"
	reasonConfirmedLockStuck = "CONFIRMED_LOCK_LEFT_IN_PLACE"
)

// cancelRetryConfig bounds the terminal-status write on the failure path.
// Losing this write strands the row PENDING until the request_id is
// replayed or the recovery worker picks the saga up again.
var cancelRetryConfig = &retry.Config{
	MaxRetries:      2,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     time.Second,
	Multiplier:      2.0,
	JitterFactor:    0.1,
}

// SagaReader provides read access to journaled saga instances
type SagaReader interface {
	Get(ctx context.Context, id string) (*pkgsaga.Instance, error)
	GetByStatus(ctx context.Context, status pkgsaga.Status, limit int) ([]*pkgsaga.Instance, error)
	GetByDefinitionID(ctx context.Context, definitionID string, limit int) ([]*pkgsaga.Instance, error)
}

// DeadLetterSink journals saga work that needs operator attention
type DeadLetterSink interface {
	SaveDeadLetter(ctx context.Context, dl *pkgsaga.DeadLetter) error
}

// AvailabilityGateway lists bookable rooms from the hotel service
type AvailabilityGateway interface {
	AvailableRooms(ctx context.Context, startDate, endDate, city string, limit int) ([]*gateway.RoomSummary, error)
}

// ReservationService defines the interface for reservation business logic
type ReservationService interface {
	// CreateReservation drives a reservation through the booking saga and
	// returns it with a terminal status. Replays of a known request_id
	// return the stored row unchanged.
	CreateReservation(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.ReservationResponse, error)

	// GetReservation retrieves a reservation by ID
	GetReservation(ctx context.Context, id string) (*dto.ReservationResponse, error)

	// GetUserReservations retrieves a user's reservations, newest first
	GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*dto.ReservationResponse, int64, error)

	// ReservationStats retrieves reservation counts grouped by status
	ReservationStats(ctx context.Context) (*dto.ReservationStatsResponse, error)

	// SuggestedRooms proxies the hotel availability list for a stay
	SuggestedRooms(ctx context.Context, startDate, endDate, city string, limit int) ([]*gateway.RoomSummary, error)

	// GetSaga retrieves a journaled saga instance by ID
	GetSaga(ctx context.Context, id string) (*pkgsaga.Instance, error)

	// ListSagas lists journaled saga instances, optionally by status
	ListSagas(ctx context.Context, status string, limit int) ([]*pkgsaga.Instance, error)

	// ResumeSaga re-drives an interrupted saga to a terminal state and
	// settles the reservation row to match
	ResumeSaga(ctx context.Context, instanceID string) (pkgsaga.Status, error)

	// FinalizeReservation flips a pending reservation to CONFIRMED. It
	// backs the saga's last step, so a replayed step must land on the
	// same row state.
	FinalizeReservation(ctx context.Context, reservationID string) error
}

// reservationService implements ReservationService
type reservationService struct {
	reservationRepo repository.ReservationRepository
	orchestrator    *pkgsaga.Orchestrator
	sagaReader      SagaReader
	deadLetters     DeadLetterSink
	dlqPublisher    retry.DLQPublisher
	eventPublisher  EventPublisher
	availability    AvailabilityGateway
	logger          *logger.Logger
	now             func() time.Time
}

// ReservationServiceConfig contains the reservation service collaborators
type ReservationServiceConfig struct {
	ReservationRepo repository.ReservationRepository
	Orchestrator    *pkgsaga.Orchestrator
	SagaReader      SagaReader
	DeadLetters     DeadLetterSink
	DLQPublisher    retry.DLQPublisher
	EventPublisher  EventPublisher
	Availability    AvailabilityGateway
	Now             func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(cfg *ReservationServiceConfig) ReservationService {
	eventPublisher := cfg.EventPublisher
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	dlqPublisher := cfg.DLQPublisher
	if dlqPublisher == nil {
		dlqPublisher = retry.NewNoOpDLQPublisher()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &reservationService{
		reservationRepo: cfg.ReservationRepo,
		orchestrator:    cfg.Orchestrator,
		sagaReader:      cfg.SagaReader,
		deadLetters:     cfg.DeadLetters,
		dlqPublisher:    dlqPublisher,
		eventPublisher:  eventPublisher,
		availability:    cfg.Availability,
		logger:          logger.Get().With(zap.String("component", "reservation_service")),
		now:             now,
	}
}

// CreateReservation drives a reservation through the booking saga
func (s *reservationService) CreateReservation(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.create")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.RoomID == "" {
		span.SetStatus(codes.Error, "invalid room_id")
		return nil, domain.ErrInvalidRoomID
	}

	requestID := req.RequestID
	if requestID == "" {
		// Server-minted key: client retries of this call are not
		// deduplicated, saga-internal replays still are.
		requestID = uuid.New().String()
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("room_id", req.RoomID),
		attribute.String("request_id", requestID),
	)

	startDate, err := dto.ParseDate(req.StartDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid start_date")
		return nil, domain.ErrInvalidDateRange
	}
	endDate, err := dto.ParseDate(req.EndDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid end_date")
		return nil, domain.ErrInvalidDateRange
	}

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	if err := domain.ValidateStay(startDate, endDate, today); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// A request_id that already has a reservation returns it unchanged,
	// whatever its status. A PENDING row here means an earlier attempt
	// crashed mid-saga; the recovery worker drives it terminal.
	existing, err := s.reservationRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("idempotent_replay", true))
		span.SetStatus(codes.Ok, "")
		return dto.ReservationFromDomain(existing), nil
	}

	reservation := domain.NewReservation(requestID, userID, req.RoomID, startDate, endDate)

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) {
			// Lost an insert race on request_id; the winner's row is
			// the answer
			winner, getErr := s.reservationRepo.GetByRequestID(ctx, requestID)
			if getErr == nil && winner != nil {
				span.SetAttributes(attribute.Bool("idempotent_replay", true))
				span.SetStatus(codes.Ok, "")
				return dto.ReservationFromDomain(winner), nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("reservation_id", reservation.ID))
	metrics.RecordReservationCreated(ctx, reservation.RoomID)

	// Publish reservation created event (sync, the row exists either way)
	_ = s.eventPublisher.PublishReservationCreated(ctx, reservation)

	final, err := s.runSaga(ctx, reservation)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.AddEvent("reservation_terminal", trace.WithAttributes(
		attribute.String("reservation_id", final.ID),
		attribute.String("status", final.Status.String()),
	))

	span.SetStatus(codes.Ok, "")
	return dto.ReservationFromDomain(final), nil
}

// runSaga executes the reservation saga and lands the row on a terminal
// status. The saga context is detached from the caller: once the PENDING
// row exists, a client disconnect must not abandon it mid-flight.
func (s *reservationService) runSaga(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	sagaCtx := context.WithoutCancel(ctx)

	data := (&saga.ReservationSagaData{
		ReservationID: reservation.ID,
		RequestID:     reservation.RequestID,
		UserID:        reservation.UserID,
		RoomID:        reservation.RoomID,
		StartDate:     reservation.StartDate.Format(dto.DateLayout),
		EndDate:       reservation.EndDate.Format(dto.DateLayout),
		CorrelationID: reservation.CorrelationID,
	}).ToMap()

	started := s.now()
	instance, execErr := s.orchestrator.Execute(sagaCtx, saga.ReservationSagaName, data)
	elapsed := s.now().Sub(started).Seconds()

	if execErr == nil {
		// The finalize step already wrote CONFIRMED
		reservation.Status = domain.ReservationStatusConfirmed
		reservation.UpdatedAt = s.now().UTC()

		metrics.RecordReservationOutcome(ctx, reservation.Status.String(), elapsed)

		// Publish reservation confirmed event (async, don't block the response)
		go func(r *domain.Reservation) {
			_ = s.eventPublisher.PublishReservationConfirmed(context.Background(), r)
		}(reservation)

		return reservation, nil
	}

	sagaID := ""
	if instance != nil {
		sagaID = instance.ID
	}
	s.logger.With(
		zap.String("reservation_id", reservation.ID),
		zap.String("saga_id", sagaID),
		zap.Error(execErr),
	).Warn("reservation saga failed")

	s.reportCompensationFailures(sagaCtx, instance, reservation)

	// Whether the release landed or not, the reservation goes CANCELLED;
	// the hotel sweeper expires any hold the release missed.
	cancelled, updErr := s.cancelReservation(sagaCtx, reservation.ID)
	if updErr != nil {
		metrics.RecordError(ctx, "cancel_write_failed", "create_reservation")
		return nil, fmt.Errorf("reservation %s failed but could not be cancelled: %w", reservation.ID, updErr)
	}

	metrics.RecordReservationOutcome(ctx, cancelled.Status.String(), elapsed)

	// The cancel write lands on a CONFIRMED row when a resumed saga won
	// the race; only an actual CANCELLED outcome is published
	if cancelled.Status == domain.ReservationStatusCancelled {
		go func(r *domain.Reservation) {
			_ = s.eventPublisher.PublishReservationCancelled(context.Background(), r)
		}(cancelled)
	}

	return cancelled, nil
}

// cancelReservation writes the CANCELLED terminal status with a short
// retry budget around transient database errors.
func (s *reservationService) cancelReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	var cancelled *domain.Reservation
	result := retry.Do(ctx, cancelRetryConfig, func(ctx context.Context) error {
		row, err := s.reservationRepo.UpdateStatus(ctx, id, domain.ReservationStatusCancelled, s.now().UTC())
		if err != nil {
			if errors.Is(err, domain.ErrReservationTerminal) || errors.Is(err, domain.ErrReservationNotFound) {
				return retry.Permanent(err)
			}
			return err
		}
		cancelled = row
		return nil
	})
	if result.Err == nil {
		return cancelled, nil
	}

	if errors.Is(result.Err, domain.ErrReservationTerminal) {
		// Already driven to a different terminal status, report the row
		// as it is
		row, err := s.reservationRepo.GetByID(ctx, id)
		if err == nil && row != nil {
			return row, nil
		}
	}

	if errors.Is(result.Err, retry.ErrMaxRetriesExceeded) && result.LastError != nil {
		return nil, result.LastError
	}
	return nil, result.Err
}

// reportCompensationFailures surfaces saga work that did not unwind. A
// failed step result anywhere but the last position is a failed
// compensation (the last one is the execution failure that triggered the
// rollback). A failed finalize step is reported too: its release no-ops
// against a confirmed hotel lock, so the room stays blocked until an
// operator steps in.
func (s *reservationService) reportCompensationFailures(ctx context.Context, instance *pkgsaga.Instance, reservation *domain.Reservation) {
	if instance == nil || len(instance.StepResults) == 0 {
		return
	}

	last := len(instance.StepResults) - 1
	for i, result := range instance.StepResults {
		if result.Status != pkgsaga.StepStatusFailed {
			continue
		}

		reason := reasonCompensationFailed
		if i == last {
			if result.StepName != saga.StepFinalizeReservation {
				// Plain execution failure, the rollback handled it
				continue
			}
			reason = reasonConfirmedLockStuck
		}

		s.deadLetter(ctx, instance, reservation, result, reason)
	}
}

// deadLetter journals and publishes a saga step that needs manual followup
func (s *reservationService) deadLetter(ctx context.Context, instance *pkgsaga.Instance, reservation *domain.Reservation, result *pkgsaga.StepResult, reason string) {
	s.logger.With(
		zap.String("saga_id", instance.ID),
		zap.String("step", result.StepName),
		zap.String("reservation_id", reservation.ID),
		zap.String("reason", reason),
		zap.String("step_error", result.Error),
	).Error("saga left work behind, dead-lettering")
	metrics.RecordError(ctx, "compensation_failed", result.StepName)

	payload := map[string]interface{}{
		"saga_id":        instance.ID,
		"step":           result.StepName,
		"reason":         reason,
		"error":          result.Error,
		"reservation_id": reservation.ID,
		"request_id":     reservation.RequestID,
		"room_id":        reservation.RoomID,
	}

	if s.deadLetters != nil {
		dl := &pkgsaga.DeadLetter{
			SagaID:       instance.ID,
			Topic:        compensationTopic,
			MessageKey:   reservation.ID,
			MessageValue: payload,
			ErrorMessage: result.Error,
		}
		if err := s.deadLetters.SaveDeadLetter(ctx, dl); err != nil {
			s.logger.With(
				zap.String("saga_id", instance.ID),
				zap.Error(err),
			).Error("failed to journal dead letter")
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := &retry.DLQMessage{
		ID:             uuid.New().String(),
		OriginalTopic:  compensationTopic,
		OriginalKey:    reservation.ID,
		Payload:        raw,
		Error:          result.Error,
		ErrorCode:      reason,
		Attempts:       1,
		FirstAttemptAt: result.StartedAt,
		LastAttemptAt:  result.FinishedAt,
		Source:         "booking-service",
		Metadata: map[string]interface{}{
			"correlation_id": reservation.CorrelationID,
		},
	}
	if err := s.dlqPublisher.PublishToDLQ(ctx, msg); err != nil {
		s.logger.With(
			zap.String("saga_id", instance.ID),
			zap.Error(err),
		).Error("failed to publish to DLQ")
	}
}

// FinalizeReservation flips a pending reservation to CONFIRMED. Repeated
// writes of the same terminal status are a no-op, so saga replays land on
// the same row state.
func (s *reservationService) FinalizeReservation(ctx context.Context, reservationID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.finalize")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", reservationID))

	if _, err := s.reservationRepo.UpdateStatus(ctx, reservationID, domain.ReservationStatusConfirmed, s.now().UTC()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetReservation retrieves a reservation by ID
func (s *reservationService) GetReservation(ctx context.Context, id string) (*dto.ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.get")
	defer span.End()

	if id == "" {
		span.SetStatus(codes.Error, "missing reservation id")
		return nil, domain.ErrReservationNotFound
	}

	span.SetAttributes(attribute.String("reservation_id", id))

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if reservation == nil {
		span.SetStatus(codes.Error, "reservation not found")
		return nil, domain.ErrReservationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return dto.ReservationFromDomain(reservation), nil
}

// GetUserReservations retrieves a user's reservations, newest first
func (s *reservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*dto.ReservationResponse, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.list_user")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, 0, domain.ErrInvalidUserID
	}

	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	reservations, total, err := s.reservationRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return dto.ReservationsFromDomain(reservations), total, nil
}

// ReservationStats retrieves reservation counts grouped by status
func (s *reservationService) ReservationStats(ctx context.Context) (*dto.ReservationStatsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.stats")
	defer span.End()

	counts, err := s.reservationRepo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	span.SetAttributes(attribute.Int64("total", total))
	span.SetStatus(codes.Ok, "")
	return &dto.ReservationStatsResponse{
		ByStatus: counts,
		Total:    total,
	}, nil
}

// SuggestedRooms proxies the hotel availability list for a stay
func (s *reservationService) SuggestedRooms(ctx context.Context, startDate, endDate, city string, limit int) ([]*gateway.RoomSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.suggested_rooms")
	defer span.End()

	start, err := dto.ParseDate(startDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid start_date")
		return nil, domain.ErrInvalidDateRange
	}
	end, err := dto.ParseDate(endDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid end_date")
		return nil, domain.ErrInvalidDateRange
	}

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	if err := domain.ValidateStay(start, end, today); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if limit < 1 || limit > 100 {
		limit = 20
	}

	span.SetAttributes(
		attribute.String("start_date", startDate),
		attribute.String("end_date", endDate),
		attribute.Int("limit", limit),
	)

	rooms, err := s.availability.AvailableRooms(ctx, startDate, endDate, city, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return rooms, nil
}

// GetSaga retrieves a journaled saga instance by ID
func (s *reservationService) GetSaga(ctx context.Context, id string) (*pkgsaga.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.get_saga")
	defer span.End()

	if id == "" {
		span.SetStatus(codes.Error, "missing saga id")
		return nil, domain.ErrSagaNotFound
	}

	span.SetAttributes(attribute.String("saga_id", id))

	instance, err := s.sagaReader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgsaga.ErrSagaNotFound) {
			span.SetStatus(codes.Error, "saga not found")
			return nil, domain.ErrSagaNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return instance, nil
}

// ResumeSaga re-drives an interrupted saga to its terminal state and
// settles the reservation row to match. Instances that finished in the
// meantime are left alone.
func (s *reservationService) ResumeSaga(ctx context.Context, instanceID string) (pkgsaga.Status, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.resume_saga")
	defer span.End()

	span.SetAttributes(attribute.String("saga_id", instanceID))

	before, err := s.orchestrator.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, pkgsaga.ErrSagaNotFound) {
			span.SetStatus(codes.Error, "saga not found")
			return "", domain.ErrSagaNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	resumedFrom := before.Status
	if resumedFrom == pkgsaga.StatusCompleted || resumedFrom == pkgsaga.StatusCompensated {
		span.SetAttributes(attribute.String("status", string(resumedFrom)))
		span.SetStatus(codes.Ok, "")
		return resumedFrom, nil
	}

	instance, execErr := s.orchestrator.Resume(ctx, instanceID)
	if instance == nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		return "", execErr
	}

	data := &saga.ReservationSagaData{}
	data.FromMap(instance.GetData())
	elapsed := s.now().Sub(instance.CreatedAt).Seconds()

	span.SetAttributes(
		attribute.String("reservation_id", data.ReservationID),
		attribute.String("resumed_from", string(resumedFrom)),
		attribute.String("status", string(instance.GetStatus())),
	)

	switch instance.GetStatus() {
	case pkgsaga.StatusCompleted:
		// The finalize step already wrote CONFIRMED
		metrics.RecordSagaRecovered(ctx, string(resumedFrom))
		metrics.RecordReservationOutcome(ctx, domain.ReservationStatusConfirmed.String(), elapsed)
		if row, getErr := s.reservationRepo.GetByID(ctx, data.ReservationID); getErr == nil && row != nil {
			go func(r *domain.Reservation) {
				_ = s.eventPublisher.PublishReservationConfirmed(context.Background(), r)
			}(row)
		}
		span.SetStatus(codes.Ok, "")
		return pkgsaga.StatusCompleted, nil

	case pkgsaga.StatusCompensated:
		s.reportCompensationFailures(ctx, instance, &domain.Reservation{
			ID:            data.ReservationID,
			RequestID:     data.RequestID,
			RoomID:        data.RoomID,
			CorrelationID: data.CorrelationID,
		})

		cancelled, updErr := s.cancelReservation(ctx, data.ReservationID)
		if updErr != nil {
			span.RecordError(updErr)
			span.SetStatus(codes.Error, updErr.Error())
			return pkgsaga.StatusCompensated, fmt.Errorf("saga %s compensated but reservation %s could not be cancelled: %w", instanceID, data.ReservationID, updErr)
		}

		metrics.RecordSagaRecovered(ctx, string(resumedFrom))
		metrics.RecordReservationOutcome(ctx, cancelled.Status.String(), elapsed)
		if cancelled.Status == domain.ReservationStatusCancelled {
			go func(r *domain.Reservation) {
				_ = s.eventPublisher.PublishReservationCancelled(context.Background(), r)
			}(cancelled)
		}
		span.SetStatus(codes.Ok, "")
		return pkgsaga.StatusCompensated, nil
	}

	// Resume surfaced an error without landing terminal; the next scan
	// picks the instance up again
	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		return instance.GetStatus(), execErr
	}
	span.SetStatus(codes.Ok, "")
	return instance.GetStatus(), nil
}

// ListSagas lists journaled saga instances, optionally filtered by status
func (s *reservationService) ListSagas(ctx context.Context, status string, limit int) ([]*pkgsaga.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.list_sagas")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Int("limit", limit),
	)

	var (
		instances []*pkgsaga.Instance
		err       error
	)
	if status != "" {
		instances, err = s.sagaReader.GetByStatus(ctx, pkgsaga.Status(status), limit)
	} else {
		instances, err = s.sagaReader.GetByDefinitionID(ctx, saga.ReservationSagaName, limit)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(instances)))
	span.SetStatus(codes.Ok, "")
	return instances, nil
}

var _ ReservationService = (*reservationService)(nil)
var _ saga.ReservationFinalizer = (*reservationService)(nil)
