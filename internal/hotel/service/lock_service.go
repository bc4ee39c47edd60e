package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/metrics"
	"github.com/Plvkssh/SmartLodge/internal/hotel/repository"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

// LockService defines the interface for room lock business logic
type LockService interface {
	// Hold places a hold on a room for a date range with idempotency support
	Hold(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error)

	// Confirm transitions a held lock to CONFIRMED
	Confirm(ctx context.Context, requestID string) (*dto.LockResponse, error)

	// Release transitions a held lock to RELEASED
	Release(ctx context.Context, requestID string) (*dto.LockResponse, error)

	// GetRoomLocks retrieves locks for a room, newest first
	GetRoomLocks(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error)

	// LockStats retrieves lock counts grouped by status
	LockStats(ctx context.Context) (*dto.LockStatsResponse, error)

	// ExpireLocks transitions stale holds to EXPIRED
	ExpireLocks(ctx context.Context, limit int) (int, error)

	// PurgeTerminalLocks deletes released and expired locks older than the window
	PurgeTerminalLocks(ctx context.Context, olderThan time.Duration) (int64, error)
}

// lockService implements LockService
type lockService struct {
	lockRepo       repository.LockRepository
	eventPublisher EventPublisher
	holdTTL        time.Duration
	now            func() time.Time
}

// LockServiceConfig contains configuration for the lock service
type LockServiceConfig struct {
	HoldTTL time.Duration
}

// NewLockService creates a new lock service
func NewLockService(
	lockRepo repository.LockRepository,
	eventPublisher EventPublisher,
	cfg *LockServiceConfig,
) LockService {
	ttl := 15 * time.Minute
	if cfg != nil && cfg.HoldTTL > 0 {
		ttl = cfg.HoldTTL
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &lockService{
		lockRepo:       lockRepo,
		eventPublisher: eventPublisher,
		holdTTL:        ttl,
		now:            time.Now,
	}
}

// Hold places a hold on a room for a date range with idempotency support
func (s *lockService) Hold(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.hold")
	defer span.End()

	if req == nil || req.RequestID == "" {
		span.SetStatus(codes.Error, "invalid request_id")
		return nil, domain.ErrInvalidRequestID
	}
	if roomID == "" {
		span.SetStatus(codes.Error, "invalid room_id")
		return nil, domain.ErrInvalidRoomID
	}

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("request_id", req.RequestID),
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

	// Identity of the request decides: a repeated request_id returns the
	// existing lock unchanged, whatever its status.
	existing, err := s.lockRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("idempotent_replay", true))
		span.SetStatus(codes.Ok, "")
		return dto.LockFromDomain(existing), nil
	}

	lock := domain.NewRoomLock(req.RequestID, roomID, startDate, endDate, s.holdTTL, correlationID)

	if err := s.lockRepo.CreateSerialized(ctx, lock); err != nil {
		if err == domain.ErrLockAlreadyExists {
			// Lost a race against a concurrent hold with the same request_id
			winner, getErr := s.lockRepo.GetByRequestID(ctx, req.RequestID)
			if getErr == nil && winner != nil {
				span.SetAttributes(attribute.Bool("idempotent_replay", true))
				span.SetStatus(codes.Ok, "")
				return dto.LockFromDomain(winner), nil
			}
		}
		if err == domain.ErrLockConflict {
			metrics.RecordConflict(ctx, roomID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.eventPublisher.PublishLockHeld(ctx, lock)

	metrics.RecordHold(ctx, roomID)

	span.AddEvent("lock_held", trace.WithAttributes(
		attribute.String("lock_id", lock.ID),
		attribute.String("room_id", roomID),
		attribute.String("request_id", req.RequestID),
	))

	span.SetStatus(codes.Ok, "")
	return dto.LockFromDomain(lock), nil
}

// Confirm transitions a held lock to CONFIRMED
func (s *lockService) Confirm(ctx context.Context, requestID string) (*dto.LockResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.confirm")
	defer span.End()

	if requestID == "" {
		span.SetStatus(codes.Error, "invalid request_id")
		return nil, domain.ErrInvalidRequestID
	}

	span.SetAttributes(attribute.String("request_id", requestID))

	now := s.now().UTC()
	lock, err := s.lockRepo.ConfirmByRequestID(ctx, requestID, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Publish lock confirmed event (async, don't block on failure)
	go func(l *domain.RoomLock) {
		_ = s.eventPublisher.PublishLockConfirmed(context.Background(), l)
	}(lock)

	durationSeconds := now.Sub(lock.CreatedAt).Seconds()
	metrics.RecordConfirmation(ctx, lock.RoomID, durationSeconds)

	span.AddEvent("lock_confirmed", trace.WithAttributes(
		attribute.String("lock_id", lock.ID),
		attribute.String("room_id", lock.RoomID),
		attribute.Float64("duration_seconds", durationSeconds),
	))

	span.SetStatus(codes.Ok, "")
	return dto.LockFromDomain(lock), nil
}

// Release transitions a held lock to RELEASED
func (s *lockService) Release(ctx context.Context, requestID string) (*dto.LockResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.release")
	defer span.End()

	if requestID == "" {
		span.SetStatus(codes.Error, "invalid request_id")
		return nil, domain.ErrInvalidRequestID
	}

	span.SetAttributes(attribute.String("request_id", requestID))

	lock, err := s.lockRepo.ReleaseByRequestID(ctx, requestID, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// A release landing on a confirmed lock is a benign no-op; only an
	// actual RELEASED outcome is published.
	if lock.Status == domain.LockStatusReleased {
		go func(l *domain.RoomLock) {
			_ = s.eventPublisher.PublishLockReleased(context.Background(), l)
		}(lock)

		metrics.RecordRelease(ctx, lock.RoomID)
	}

	span.AddEvent("lock_released", trace.WithAttributes(
		attribute.String("lock_id", lock.ID),
		attribute.String("room_id", lock.RoomID),
		attribute.String("status", string(lock.Status)),
	))

	span.SetStatus(codes.Ok, "")
	return dto.LockFromDomain(lock), nil
}

// GetRoomLocks retrieves locks for a room, newest first
func (s *lockService) GetRoomLocks(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.list_room")
	defer span.End()

	if roomID == "" {
		span.SetStatus(codes.Error, "invalid room_id")
		return nil, domain.ErrInvalidRoomID
	}

	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	locks, err := s.lockRepo.GetByRoomID(ctx, roomID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	responses := make([]*dto.LockResponse, len(locks))
	for i, l := range locks {
		responses[i] = dto.LockFromDomain(l)
	}

	span.SetAttributes(attribute.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "")
	return responses, nil
}

// LockStats retrieves lock counts grouped by status
func (s *lockService) LockStats(ctx context.Context) (*dto.LockStatsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.stats")
	defer span.End()

	counts, err := s.lockRepo.CountByStatus(ctx)
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
	return &dto.LockStatsResponse{
		ByStatus: counts,
		Total:    total,
	}, nil
}

// ExpireLocks transitions stale holds to EXPIRED
func (s *lockService) ExpireLocks(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.expire")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	span.SetAttributes(attribute.Int("limit", limit))

	now := s.now().UTC()
	locks, err := s.lockRepo.GetExpired(ctx, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	expiredCount := 0
	for _, lock := range locks {
		moved, err := s.lockRepo.MarkExpired(ctx, lock.ID, now)
		if err != nil || !moved {
			continue // raced with a confirm or release, leave it be
		}

		lock.Status = domain.LockStatusExpired
		lock.UpdatedAt = now

		// Publish lock expired event (async, don't block the sweep)
		go func(l *domain.RoomLock) {
			_ = s.eventPublisher.PublishLockExpired(context.Background(), l)
		}(lock)

		expiredCount++
	}

	if expiredCount > 0 {
		metrics.RecordExpiration(ctx, int64(expiredCount))
	}

	span.SetAttributes(attribute.Int("expired_count", expiredCount))
	span.SetStatus(codes.Ok, "")
	return expiredCount, nil
}

// PurgeTerminalLocks deletes released and expired locks older than the window
func (s *lockService) PurgeTerminalLocks(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lock.purge")
	defer span.End()

	cutoff := s.now().UTC().Add(-olderThan)
	span.SetAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339)))

	deleted, err := s.lockRepo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int64("deleted", deleted))
	span.SetStatus(codes.Ok, "")
	return deleted, nil
}
