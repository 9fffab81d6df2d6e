package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
	"github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/metrics"
)

// TxRunner executes a function inside one database transaction with
// transaction-bound repositories. Implemented by the repository layer.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(bookings bookingDomain.Repository, technicians technicianDomain.Repository) error) error
}

// BanTechnicianRequest holds an admin ban action.
type BanTechnicianRequest struct {
	Reason       string `json:"reason" binding:"required"`
	Severity     string `json:"severity" binding:"required"`
	DurationDays int    `json:"duration_days"`
}

// BanDetailsDTO is the response representation of a technician's ban state.
type BanDetailsDTO struct {
	TechnicianID   uuid.UUID                        `json:"technician_id"`
	FullName       string                           `json:"full_name"`
	IsBanned       bool                             `json:"is_banned"`
	BanReason      string                           `json:"ban_reason,omitempty"`
	BannedAt       *time.Time                       `json:"banned_at,omitempty"`
	BanEndDate     *time.Time                       `json:"ban_end_date,omitempty"`
	BanSeverity    string                           `json:"ban_severity,omitempty"`
	BanHistory     []technicianDomain.BanRecord     `json:"ban_history,omitempty"`
	WarningHistory []technicianDomain.WarningRecord `json:"warning_history,omitempty"`
}

// AdminService handles technician moderation: bans, warnings, and the
// booking cascade a ban triggers.
type AdminService struct {
	tx          TxRunner
	technicians technicianDomain.Repository
	producer    events.Publisher
	bookings    *BookingService
	logger      *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	tx TxRunner,
	technicians technicianDomain.Repository,
	producer events.Publisher,
	bookings *BookingService,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		tx:          tx,
		technicians: technicians,
		producer:    producer,
		bookings:    bookings,
		logger:      logger,
	}
}

// BanTechnician bans a technician and cancels all their pending and
// confirmed bookings in the same transaction, so the ban never commits
// with active bookings left behind.
func (s *AdminService) BanTechnician(ctx context.Context, adminID, technicianID uuid.UUID, req BanTechnicianRequest) (*BanDetailsDTO, error) {
	severity := technicianDomain.BanSeverity(req.Severity)
	cascadeReason := fmt.Sprintf("Technician banned: %s", req.Reason)

	var banned *technicianDomain.Technician
	var cancelled []*bookingDomain.Booking

	err := s.tx.InTransaction(ctx, func(bookings bookingDomain.Repository, technicians technicianDomain.Repository) error {
		tech, err := technicians.FindByID(ctx, technicianID)
		if err != nil {
			return err
		}

		if err := tech.Ban(req.Reason, severity, adminID, req.DurationDays); err != nil {
			return err
		}
		tech.IncrementVersion()
		if err := technicians.Update(ctx, tech); err != nil {
			return err
		}

		active, err := bookings.FindByTechnicianAndStatuses(ctx, technicianID,
			[]bookingDomain.BookingStatus{bookingDomain.StatusPending, bookingDomain.StatusConfirmed})
		if err != nil {
			return err
		}

		for _, bk := range active {
			if err := bk.Cancel(adminID, cascadeReason); err != nil {
				return err
			}
			bk.IncrementVersion()
			if err := bookings.Update(ctx, bk); err != nil {
				return err
			}
		}

		banned = tech
		cancelled = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TechniciansBanned.WithLabelValues(string(severity)).Inc()
	s.bookings.invalidateStats(ctx)

	s.logger.Info("technician banned",
		zap.String("technician_id", technicianID.String()),
		zap.String("severity", string(severity)),
		zap.Int("cancelled_bookings", len(cancelled)),
	)

	banEvt := events.TechnicianBannedEvent{
		TechnicianID:      technicianID,
		Reason:            req.Reason,
		Severity:          string(severity),
		BanEndDate:        banned.BanEndDate(),
		BannedBy:          adminID,
		CancelledBookings: len(cancelled),
		OccurredAt:        time.Now().UTC(),
	}
	s.bookings.publishEvent(ctx, events.TopicTechnicianEvents, events.TechnicianBanned, technicianID.String(), banEvt)

	for _, bk := range cancelled {
		cancelEvt := events.BookingCancelledEvent{
			BookingID:      bk.ID(),
			ClientID:       bk.ClientID(),
			TechnicianID:   bk.TechnicianID(),
			CancelledBy:    adminID,
			Reason:         cascadeReason,
			RefundEligible: bk.IsRefundEligible(),
			PricePaisa:     bk.FinalPricePaisa(),
			OccurredAt:     time.Now().UTC(),
		}
		s.bookings.publishEvent(ctx, events.TopicBookingEvents, events.BookingCancelled, bk.ID().String(), cancelEvt)
	}

	dto := toBanDetailsDTO(banned)
	return &dto, nil
}

// UnbanTechnician lifts a technician's ban.
func (s *AdminService) UnbanTechnician(ctx context.Context, adminID, technicianID uuid.UUID, reason string) (*BanDetailsDTO, error) {
	tech, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	if err := tech.Unban(adminID, reason); err != nil {
		return nil, err
	}

	tech.IncrementVersion()
	if err := s.technicians.Update(ctx, tech); err != nil {
		return nil, err
	}

	evt := events.TechnicianUnbannedEvent{
		TechnicianID: technicianID,
		LiftedBy:     adminID,
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	}
	s.bookings.publishEvent(ctx, events.TopicTechnicianEvents, events.TechnicianUnbanned, technicianID.String(), evt)

	dto := toBanDetailsDTO(tech)
	return &dto, nil
}

// WarnTechnician records a formal warning without a ban.
func (s *AdminService) WarnTechnician(ctx context.Context, adminID, technicianID uuid.UUID, reason string) (*BanDetailsDTO, error) {
	tech, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	if err := tech.Warn(reason, adminID); err != nil {
		return nil, err
	}

	tech.IncrementVersion()
	if err := s.technicians.Update(ctx, tech); err != nil {
		return nil, err
	}

	dto := toBanDetailsDTO(tech)
	return &dto, nil
}

// ProcessExpiredBans lifts all temporary bans whose end date has passed.
// Returns the number of bans lifted. Invoked from the admin endpoint and
// the background sweeper.
func (s *AdminService) ProcessExpiredBans(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := s.technicians.FindExpiredBans(ctx, now)
	if err != nil {
		return 0, err
	}

	lifted := 0
	for _, tech := range expired {
		if !tech.BanExpired(now) {
			continue
		}
		if err := tech.Unban(uuid.Nil, "temporary ban expired"); err != nil {
			s.logger.Warn("failed to lift expired ban",
				zap.String("technician_id", tech.ID().String()),
				zap.Error(err),
			)
			continue
		}
		tech.IncrementVersion()
		if err := s.technicians.Update(ctx, tech); err != nil {
			if domain.IsConflict(err) {
				// Another instance already lifted it.
				continue
			}
			return lifted, err
		}
		lifted++

		evt := events.TechnicianUnbannedEvent{
			TechnicianID: tech.ID(),
			Reason:       "temporary ban expired",
			OccurredAt:   time.Now().UTC(),
		}
		s.bookings.publishEvent(ctx, events.TopicTechnicianEvents, events.TechnicianUnbanned, tech.ID().String(), evt)
	}

	if lifted > 0 {
		s.logger.Info("expired bans processed", zap.Int("lifted", lifted))
	}
	return lifted, nil
}

// ListBannedTechnicians retrieves currently banned technicians.
func (s *AdminService) ListBannedTechnicians(ctx context.Context, page, limit int) (*domain.PaginatedResult[BanDetailsDTO], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	technicians, total, err := s.technicians.FindBanned(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BanDetailsDTO, len(technicians))
	for i, tech := range technicians {
		dtos[i] = toBanDetailsDTO(tech)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetBanDetails retrieves a technician's full ban and warning history.
func (s *AdminService) GetBanDetails(ctx context.Context, technicianID uuid.UUID) (*BanDetailsDTO, error) {
	tech, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	dto := toBanDetailsDTO(tech)
	return &dto, nil
}

func toBanDetailsDTO(t *technicianDomain.Technician) BanDetailsDTO {
	return BanDetailsDTO{
		TechnicianID:   t.ID(),
		FullName:       t.FullName(),
		IsBanned:       t.IsBanned(),
		BanReason:      t.BanReason(),
		BannedAt:       t.BannedAt(),
		BanEndDate:     t.BanEndDate(),
		BanSeverity:    string(t.BanSeverity()),
		BanHistory:     t.BanHistory(),
		WarningHistory: t.WarningHistory(),
	}
}
