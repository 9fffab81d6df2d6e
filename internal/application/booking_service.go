package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/cache"
	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	clientDomain "github.com/Aalok376/GharBata-sub001/internal/domain/client"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
	"github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/kafka"
	"github.com/Aalok376/GharBata-sub001/internal/metrics"
)

const statsCacheKey = "booking:stats:overview"

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	TechnicianID     uuid.UUID             `json:"technician_id" binding:"required"`
	Service          string                `json:"service" binding:"required"`
	ContactName      string                `json:"contact_name" binding:"required"`
	ContactPhone     string                `json:"contact_phone" binding:"required"`
	Address          bookingDomain.Address `json:"address" binding:"required"`
	ScheduledDate    string                `json:"scheduled_date" binding:"required"`
	ScheduledTime    string                `json:"scheduled_time" binding:"required"`
	ScheduledEndTime string                `json:"scheduled_end_time"`
	FinalPricePaisa  int64                 `json:"final_price_paisa" binding:"required"`
}

// RescheduleRequest holds the data for moving a booking to a new slot.
type RescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
	Reason  string `json:"reason"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID                         `json:"id"`
	ClientID           uuid.UUID                         `json:"client_id"`
	TechnicianID       uuid.UUID                         `json:"technician_id"`
	Service            string                            `json:"service"`
	ContactName        string                            `json:"contact_name"`
	ContactPhone       string                            `json:"contact_phone"`
	Address            bookingDomain.Address             `json:"address"`
	FullAddress        string                            `json:"full_address"`
	ScheduledDate      string                            `json:"scheduled_date"`
	ScheduledTime      string                            `json:"scheduled_time"`
	ScheduledEndTime   string                            `json:"scheduled_end_time,omitempty"`
	FinalPricePaisa    int64                             `json:"final_price_paisa"`
	Currency           string                            `json:"currency"`
	Status             string                            `json:"status"`
	PreviousStatus     string                            `json:"previous_status,omitempty"`
	StatusHistory      []bookingDomain.StatusHistoryEntry `json:"status_history"`
	CancelledAt        *time.Time                        `json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID                        `json:"cancelled_by,omitempty"`
	CancellationReason string                            `json:"cancellation_reason,omitempty"`
	RejectionReason    string                            `json:"rejection_reason,omitempty"`
	ConfirmedAt        *time.Time                        `json:"confirmed_at,omitempty"`
	StartedAt          *time.Time                        `json:"started_at,omitempty"`
	CompletedAt        *time.Time                        `json:"completed_at,omitempty"`
	CompletionNotes    string                            `json:"completion_notes,omitempty"`
	Rating             *int                              `json:"rating,omitempty"`
	Feedback           string                            `json:"feedback,omitempty"`
	Issues             []bookingDomain.Issue             `json:"issues,omitempty"`
	RescheduleHistory  []bookingDomain.RescheduleEntry   `json:"reschedule_history,omitempty"`
	RefundStatus       string                            `json:"refund_status"`
	RefundedAt         *time.Time                        `json:"refunded_at,omitempty"`
	Version            int64                             `json:"version"`
	CreatedAt          time.Time                         `json:"created_at"`
	UpdatedAt          time.Time                         `json:"updated_at"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	bookings    bookingDomain.Repository
	technicians technicianDomain.Repository
	clients     clientDomain.Repository
	producer    events.Publisher
	stats       *cache.StatsCache
	logger      *zap.Logger
}

// NewBookingService creates a new BookingService. The stats cache is
// optional; nil disables caching.
func NewBookingService(
	bookings bookingDomain.Repository,
	technicians technicianDomain.Repository,
	clients clientDomain.Repository,
	producer events.Publisher,
	stats *cache.StatsCache,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		technicians: technicians,
		clients:     clients,
		producer:    producer,
		stats:       stats,
		logger:      logger,
	}
}

// CreateBooking creates a new booking for the authenticated client.
func (s *BookingService) CreateBooking(ctx context.Context, clientID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return nil, err
	}

	tech, err := s.technicians.FindByID(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}
	if tech.IsBanned() || !tech.Active() {
		return nil, domain.NewValidationError("technician is not currently accepting bookings")
	}

	scheduledDate, err := bookingDomain.ParseDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}

	// Early availability check for a friendly error. The unique index on
	// active slots still closes the race between check and insert.
	available, err := s.bookings.IsSlotAvailable(ctx, req.TechnicianID, scheduledDate, req.ScheduledTime, bookingDomain.ActiveStatuses(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !available {
		metrics.SlotConflicts.Inc()
		return nil, domain.NewConflictError("technician already has a booking for this slot")
	}

	bk, err := bookingDomain.NewBooking(
		clientID,
		req.TechnicianID,
		req.Service,
		req.ContactName,
		req.ContactPhone,
		req.Address,
		scheduledDate,
		req.ScheduledTime,
		req.ScheduledEndTime,
		req.FinalPricePaisa,
	)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Save(ctx, bk); err != nil {
		if domain.IsConflict(err) {
			metrics.SlotConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.invalidateStats(ctx)

	evt := events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		ClientID:      bk.ClientID(),
		TechnicianID:  bk.TechnicianID(),
		Service:       bk.Service(),
		ScheduledDate: bk.ScheduledDate().Format(bookingDomain.DateLayout),
		ScheduledTime: bk.ScheduledTime(),
		PricePaisa:    bk.FinalPricePaisa(),
		Currency:      bk.Currency(),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCreated, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a booking, enforcing that only its parties or an
// admin may see it.
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != bk.ClientID() && actor.ID != bk.TechnicianID() {
		return nil, domain.NewForbiddenError("you are not a party to this booking")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings retrieves bookings matching the filter. Non-admin callers
// are always scoped to their own bookings.
func (s *BookingService) ListBookings(ctx context.Context, actor Actor, filter bookingDomain.Filter) (*domain.PaginatedResult[BookingDTO], error) {
	switch actor.Role {
	case auth.RoleClient:
		filter.ClientID = &actor.ID
		filter.TechnicianID = nil
	case auth.RoleTechnician:
		filter.TechnicianID = &actor.ID
		filter.ClientID = nil
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	result := domain.NewPaginatedResult(dtos, total, filter.Page, filter.Limit)
	return &result, nil
}

// AcceptBooking confirms a pending booking for its assigned technician.
func (s *BookingService) AcceptBooking(ctx context.Context, technicianID, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Accept(technicianID); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusEvent(ctx, events.BookingConfirmed, bk, technicianID, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// RejectBooking declines a pending booking. Rejection is recorded as a
// cancellation attributed to the technician.
func (s *BookingService) RejectBooking(ctx context.Context, technicianID, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Reject(technicianID, reason); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusEvent(ctx, events.BookingRejected, bk, technicianID, reason)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a booking on behalf of either party or an admin.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != bk.ClientID() && actor.ID != bk.TechnicianID() {
		return nil, domain.NewForbiddenError("you are not a party to this booking")
	}

	if err := bk.Cancel(actor.ID, reason); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	evt := events.BookingCancelledEvent{
		BookingID:      bk.ID(),
		ClientID:       bk.ClientID(),
		TechnicianID:   bk.TechnicianID(),
		CancelledBy:    actor.ID,
		Reason:         reason,
		RefundEligible: bk.IsRefundEligible(),
		PricePaisa:     bk.FinalPricePaisa(),
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCancelled, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// StartBooking marks a confirmed booking as in progress.
func (s *BookingService) StartBooking(ctx context.Context, technicianID, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Start(technicianID); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusEvent(ctx, events.BookingStarted, bk, technicianID, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteBooking marks an in-progress booking as completed, optionally
// overriding the final price.
func (s *BookingService) CompleteBooking(ctx context.Context, technicianID, bookingID uuid.UUID, notes string, actualPricePaisa *int64) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Complete(technicianID, notes, actualPricePaisa); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusEvent(ctx, events.BookingCompleted, bk, technicianID, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// RescheduleBooking moves a booking to a new slot on behalf of either party.
func (s *BookingService) RescheduleBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, req RescheduleRequest) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != bk.ClientID() && actor.ID != bk.TechnicianID() {
		return nil, domain.NewForbiddenError("you are not a party to this booking")
	}

	newDate, err := bookingDomain.ParseDate(req.NewDate)
	if err != nil {
		return nil, err
	}

	excludeID := bk.ID()
	available, err := s.bookings.IsSlotAvailable(ctx, bk.TechnicianID(), newDate, req.NewTime, bookingDomain.RescheduleConflictStatuses(), &excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !available {
		metrics.SlotConflicts.Inc()
		return nil, domain.NewConflictError("technician already has a booking for the new slot")
	}

	oldDate := bk.ScheduledDate().Format(bookingDomain.DateLayout)
	oldTime := bk.ScheduledTime()

	if err := bk.Reschedule(actor.ID, newDate, req.NewTime, req.Reason); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	evt := events.BookingRescheduledEvent{
		BookingID:     bk.ID(),
		TechnicianID:  bk.TechnicianID(),
		OldDate:       oldDate,
		OldTime:       oldTime,
		NewDate:       req.NewDate,
		NewTime:       req.NewTime,
		RescheduledBy: actor.ID,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingRescheduled, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// SubmitFeedback records the client's rating and feedback on a completed
// booking. Resubmitting overwrites the previous feedback.
func (s *BookingService) SubmitFeedback(ctx context.Context, clientID, bookingID uuid.UUID, rating int, feedback string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if clientID != bk.ClientID() {
		return nil, domain.NewForbiddenError("only the booking's client may leave feedback")
	}

	if err := bk.SubmitFeedback(rating, feedback); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// GetStats returns the aggregate booking overview, served through the
// stats cache when one is configured and the filter is empty.
func (s *BookingService) GetStats(ctx context.Context, filter bookingDomain.StatsFilter) (*bookingDomain.Stats, error) {
	cacheable := s.stats != nil && filter.TechnicianID == nil && filter.DateFrom == nil && filter.DateTo == nil

	if cacheable {
		var cached bookingDomain.Stats
		err := s.stats.Get(ctx, statsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.bookings.GetStats(ctx, filter)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.stats.Set(ctx, statsCacheKey, stats)
	}
	return stats, nil
}

// RecordRefund marks a refund as processed on a cancelled booking. Called
// from the payment events consumer.
func (s *BookingService) RecordRefund(ctx context.Context, bookingID uuid.UUID, reference string) error {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := bk.MarkRefundProcessed(reference); err != nil {
		// A replayed event for an already-processed refund is not an error.
		if domain.IsInvalidState(err) || domain.IsConflict(err) {
			s.logger.Info("ignoring duplicate refund event",
				zap.String("booking_id", bookingID.String()),
			)
			return nil
		}
		return err
	}

	return s.persist(ctx, bk)
}

func (s *BookingService) persist(ctx context.Context, bk *bookingDomain.Booking) error {
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return err
	}
	metrics.BookingTransitions.WithLabelValues(bk.Status().String()).Inc()
	s.invalidateStats(ctx)
	return nil
}

func (s *BookingService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, statsCacheKey)
	}
}

func (s *BookingService) publishStatusEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking, changedBy uuid.UUID, reason string) {
	evt := events.BookingStatusEvent{
		BookingID:    bk.ID(),
		ClientID:     bk.ClientID(),
		TechnicianID: bk.TechnicianID(),
		Status:       bk.Status().String(),
		ChangedBy:    changedBy,
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, eventType, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent("booking-service", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                 bk.ID(),
		ClientID:           bk.ClientID(),
		TechnicianID:       bk.TechnicianID(),
		Service:            bk.Service(),
		ContactName:        bk.ContactName(),
		ContactPhone:       bk.ContactPhone(),
		Address:            bk.Address(),
		FullAddress:        bk.FullAddress(),
		ScheduledDate:      bk.ScheduledDate().Format(bookingDomain.DateLayout),
		ScheduledTime:      bk.ScheduledTime(),
		ScheduledEndTime:   bk.ScheduledEndTime(),
		FinalPricePaisa:    bk.FinalPricePaisa(),
		Currency:           bk.Currency(),
		Status:             bk.Status().String(),
		PreviousStatus:     bk.PreviousStatus().String(),
		StatusHistory:      bk.StatusHistory(),
		CancelledAt:        bk.CancelledAt(),
		CancelledBy:        bk.CancelledBy(),
		CancellationReason: bk.CancellationReason(),
		RejectionReason:    bk.RejectionReason(),
		ConfirmedAt:        bk.ConfirmedAt(),
		StartedAt:          bk.StartedAt(),
		CompletedAt:        bk.CompletedAt(),
		CompletionNotes:    bk.CompletionNotes(),
		Rating:             bk.Rating(),
		Feedback:           bk.Feedback(),
		Issues:             bk.Issues(),
		RescheduleHistory:  bk.RescheduleHistory(),
		RefundStatus:       string(bk.RefundStatus()),
		RefundedAt:         bk.RefundedAt(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}
