package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/internal/booking/metrics"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	"github.com/Plvkssh/SmartLodge/pkg/retry"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Config holds hotel gateway settings
type Config struct {
	// BaseURL is the hotel service base URL, e.g. http://localhost:8081
	BaseURL string
	// Timeout is the per-attempt request timeout
	Timeout time.Duration
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int
}

// HotelGateway is the HTTP client for the hotel service lock API.
// Every lock call carries the reservation's request_id, so the hotel
// side absorbs replays and the retry loop here can fire blindly on
// transport errors and 5xx responses. Definitive rejections (conflict,
// unknown room) are never retried.
type HotelGateway struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
	logger     *logger.Logger
}

// NewHotelGateway creates a hotel gateway client
func NewHotelGateway(cfg *Config) *HotelGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &HotelGateway{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retrier: retry.New(&retry.Config{
			MaxRetries:      maxRetries,
			InitialInterval: 300 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		}),
		logger: logger.Get().With(zap.String("component", "hotel_gateway")),
	}
}

// envelope mirrors the hotel service response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// lockData is the slice of the hotel lock payload the saga cares about
type lockData struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	RoomID    string `json:"room_id"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// RoomSummary represents an available room returned by the hotel service
type RoomSummary struct {
	ID            string  `json:"id"`
	HotelID       string  `json:"hotel_id"`
	RoomNumber    string  `json:"room_number"`
	Type          string  `json:"type"`
	Capacity      int     `json:"capacity"`
	PricePerNight float64 `json:"price_per_night"`
	IsAvailable   bool    `json:"is_available"`
	TimesBooked   int64   `json:"times_booked"`
}

// HoldRoom places a hold on a room for the given date range and returns
// the hotel-side lock id.
func (g *HotelGateway) HoldRoom(ctx context.Context, roomID, requestID, correlationID, startDate, endDate string) (string, error) {
	body := map[string]string{
		"request_id": requestID,
		"start_date": startDate,
		"end_date":   endDate,
	}
	lock, err := g.postLock(ctx, "hold", roomID, correlationID, body)
	if err != nil {
		return "", err
	}
	return lock.ID, nil
}

// ConfirmRoom promotes a hold identified by request_id to confirmed
func (g *HotelGateway) ConfirmRoom(ctx context.Context, roomID, requestID, correlationID string) error {
	body := map[string]string{
		"request_id": requestID,
	}
	_, err := g.postLock(ctx, "confirm", roomID, correlationID, body)
	return err
}

// ReleaseRoom drops a hold identified by request_id. The hotel side
// treats a release of an already released hold as success, so
// compensation replays converge.
func (g *HotelGateway) ReleaseRoom(ctx context.Context, roomID, requestID, correlationID string) error {
	body := map[string]string{
		"request_id": requestID,
	}
	_, err := g.postLock(ctx, "release", roomID, correlationID, body)
	return err
}

// AvailableRooms queries the hotel service for rooms free over the
// given date range, optionally filtered by city.
func (g *HotelGateway) AvailableRooms(ctx context.Context, startDate, endDate, city string, limit int) ([]*RoomSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.hotel.available_rooms")
	defer span.End()

	q := url.Values{}
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	if city != "" {
		q.Set("city", city)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	reqURL := fmt.Sprintf("%s/api/v1/rooms/available?%s", g.baseURL, q.Encode())

	var rooms []*RoomSummary
	result := g.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		telemetry.InjectTraceContext(ctx, req.Header)

		env, err := g.roundTrip(req)
		if err != nil {
			return err
		}

		var out []*RoomSummary
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode room list: %w", err))
		}
		rooms = out
		return nil
	})

	metrics.RecordGatewayCall(ctx, "available_rooms", result.Attempts, result.Err != nil)
	if err := finalErr("available rooms", result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("room_count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return rooms, nil
}

// postLock issues one of the lock operations (hold, confirm, release)
// with retry on transport failures and retryable status codes.
func (g *HotelGateway) postLock(ctx context.Context, op, roomID, correlationID string, body map[string]string) (*lockData, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.hotel."+op)
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("correlation_id", correlationID),
	)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	reqURL := fmt.Sprintf("%s/api/v1/rooms/%s/%s", g.baseURL, roomID, op)

	attemptLog := g.logger.With(
		zap.String("operation", op),
		zap.String("room_id", roomID),
		zap.String("correlation_id", correlationID),
	)

	var lock lockData
	result := g.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.CorrelationIDHeader, correlationID)
		telemetry.InjectTraceContext(ctx, req.Header)

		env, err := g.roundTrip(req)
		if err != nil {
			return err
		}

		var out lockData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &out); err != nil {
				return retry.Permanent(fmt.Errorf("failed to decode lock payload: %w", err))
			}
		}
		lock = out
		return nil
	}, func(attempt int, err error, nextInterval time.Duration) {
		attemptLog.With(
			zap.Int("attempt", attempt),
			zap.Duration("next_interval", nextInterval),
			zap.Error(err),
		).Warn("hotel call failed, retrying")
	})

	metrics.RecordGatewayCall(ctx, op, result.Attempts, result.Err != nil)
	if err := finalErr(op, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("lock_id", lock.ID))
	span.SetStatus(codes.Ok, "")
	return &lock, nil
}

// roundTrip sends the request and returns the decoded envelope on
// success. Transport errors, retryable status codes and undecodable
// bodies come back as plain errors so the retrier fires again;
// definitive rejections come back wrapped in retry.Permanent.
func (g *HotelGateway) roundTrip(req *http.Request) (*envelope, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hotel service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if retryableStatus(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("hotel returned %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode hotel response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return nil, retry.Permanent(mapFailure(resp.StatusCode, &env))
	}
	return &env, nil
}

// mapFailure turns a definitive hotel rejection into a domain error
func mapFailure(status int, env *envelope) error {
	code := ""
	message := http.StatusText(status)
	if env.Error != nil {
		code = env.Error.Code
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}

	switch code {
	case "ROOM_CONFLICT", "CONFLICT":
		return fmt.Errorf("%w: %s", domain.ErrRoomConflict, message)
	case "ROOM_NOT_FOUND":
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, message)
	case "ROOM_UNAVAILABLE":
		return fmt.Errorf("%w: %s", domain.ErrRoomUnavailable, message)
	}
	if code != "" {
		return fmt.Errorf("%w: %s: %s", domain.ErrHotelGateway, code, message)
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrHotelGateway, status, message)
}

// retryableStatus reports whether the hotel response is worth retrying.
// Server errors, timeouts and throttling can clear up on a later
// attempt; any other status is the hotel's final answer.
func retryableStatus(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	}
	return false
}

// finalErr collapses a retry result into the error the caller sees
func finalErr(op string, result *retry.Result) error {
	switch {
	case result.Err == nil:
		return nil
	case errors.Is(result.Err, retry.ErrMaxRetriesExceeded):
		return fmt.Errorf("%s failed after %d attempts: %w: %v", op, result.Attempts, domain.ErrHotelGateway, result.LastError)
	case errors.Is(result.Err, retry.ErrContextCanceled):
		if result.LastError != nil {
			return fmt.Errorf("%s canceled: %w", op, result.LastError)
		}
		return fmt.Errorf("%s canceled: %w", op, result.Err)
	default:
		return fmt.Errorf("%s failed: %w", op, result.Err)
	}
}
