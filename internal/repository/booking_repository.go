package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClientID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	TechnicianID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Service            string          `gorm:"not null;size:100"`
	ContactName        string          `gorm:"not null;size:100"`
	ContactPhone       string          `gorm:"not null;size:20"`
	Address            json.RawMessage `gorm:"type:jsonb;not null"`
	ScheduledDate      time.Time       `gorm:"type:date;not null;index"`
	ScheduledTime      string          `gorm:"not null;size:5"`
	ScheduledEndTime   string          `gorm:"size:5"`
	FinalPricePaisa    int64           `gorm:"not null"`
	Currency           string          `gorm:"not null;size:3;default:'NPR'"`
	Status             string          `gorm:"not null;size:20;index"`
	PreviousStatus     string          `gorm:"size:20"`
	StatusHistory      json.RawMessage `gorm:"type:jsonb;not null"`
	CancelledAt        *time.Time      `gorm:""`
	CancelledBy        *uuid.UUID      `gorm:"type:uuid"`
	CancellationReason string          `gorm:"size:500"`
	RejectionReason    string          `gorm:"size:500"`
	ConfirmedAt        *time.Time      `gorm:""`
	StartedAt          *time.Time      `gorm:""`
	CompletedAt        *time.Time      `gorm:""`
	CompletionNotes    string          `gorm:"size:1000"`
	Rating             *int            `gorm:""`
	Feedback           string          `gorm:"size:1000"`
	FeedbackDate       *time.Time      `gorm:""`
	Issues             json.RawMessage `gorm:"type:jsonb"`
	RescheduleHistory  json.RawMessage `gorm:"type:jsonb"`
	RefundStatus       string          `gorm:"not null;size:20;default:'none'"`
	RefundedAt         *time.Time      `gorm:""`
	RefundReference    string          `gorm:"size:100"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of the booking
// repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// List retrieves bookings matching the filter with pagination.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.Filter) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})
	query = applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

func applyFilter(query *gorm.DB, filter bookingDomain.Filter) *gorm.DB {
	if filter.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.DateFrom != nil {
		query = query.Where("scheduled_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("scheduled_date <= ?", *filter.DateTo)
	}
	return query
}

// IsSlotAvailable reports whether the (technician, date, time) slot is free
// of bookings in any of the given statuses.
func (r *GormBookingRepository) IsSlotAvailable(
	ctx context.Context,
	technicianID uuid.UUID,
	date time.Time,
	timeOfDay string,
	statuses []bookingDomain.BookingStatus,
	excludeID *uuid.UUID,
) (bool, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = s.String()
	}

	query := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("technician_id = ?", technicianID).
		Where("scheduled_date = ?", date.Format(bookingDomain.DateLayout)).
		Where("scheduled_time = ?", timeOfDay).
		Where("status IN ?", statusStrings)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}
	return count == 0, nil
}

// FindByTechnicianAndStatuses retrieves all bookings of a technician in any
// of the given statuses.
func (r *GormBookingRepository) FindByTechnicianAndStatuses(
	ctx context.Context,
	technicianID uuid.UUID,
	statuses []bookingDomain.BookingStatus,
) ([]*bookingDomain.Booking, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = s.String()
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Where("status IN ?", statusStrings).
		Order("scheduled_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find technician bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

// GetStats returns the aggregate booking overview.
func (r *GormBookingRepository) GetStats(ctx context.Context, filter bookingDomain.StatsFilter) (*bookingDomain.Stats, error) {
	base := r.db.WithContext(ctx).Model(&BookingModel{})
	if filter.TechnicianID != nil {
		base = base.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.DateFrom != nil {
		base = base.Where("scheduled_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		base = base.Where("scheduled_date <= ?", *filter.DateTo)
	}

	stats := &bookingDomain.Stats{ByStatus: make(map[string]int64)}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := base.Session(&gorm.Session{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, sc := range counts {
		stats.ByStatus[sc.Status] = sc.Count
		stats.TotalBookings += sc.Count
	}
	stats.CompletedBookings = stats.ByStatus[bookingDomain.StatusCompleted.String()]

	type revenueRow struct {
		Revenue   int64
		AvgRating *float64
	}
	var rev revenueRow
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", bookingDomain.StatusCompleted.String()).
		Select("COALESCE(SUM(final_price_paisa), 0) as revenue, AVG(rating) as avg_rating").
		Scan(&rev).Error; err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	stats.TotalRevenuePaisa = rev.Revenue
	if rev.AvgRating != nil {
		stats.AverageRating = *rev.AvgRating
	}

	return stats, nil
}

// GetIssueStats returns issue counts grouped by status and severity across
// all bookings.
func (r *GormBookingRepository) GetIssueStats(ctx context.Context) (*bookingDomain.IssueStats, error) {
	type issueRow struct {
		Status   string
		Severity string
		Count    int64
	}
	var rows []issueRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT issue->>'status' AS status,
		       issue->>'severity' AS severity,
		       count(*) AS count
		FROM bookings,
		     jsonb_array_elements(issues) AS issue
		GROUP BY issue->>'status', issue->>'severity'
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate issues: %w", err)
	}

	stats := &bookingDomain.IssueStats{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
	}
	for _, row := range rows {
		stats.TotalIssues += row.Count
		stats.ByStatus[row.Status] += row.Count
		stats.BySeverity[row.Severity] += row.Count
	}
	return stats, nil
}

// Save persists a new booking. A collision on the active-slot unique index
// surfaces as a conflict.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isSlotConflict(err) {
			return domain.NewConflictError("technician already has a booking for this slot")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before persisting).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"service":             model.Service,
			"contact_name":        model.ContactName,
			"contact_phone":       model.ContactPhone,
			"address":             model.Address,
			"scheduled_date":      model.ScheduledDate,
			"scheduled_time":      model.ScheduledTime,
			"scheduled_end_time":  model.ScheduledEndTime,
			"final_price_paisa":   model.FinalPricePaisa,
			"status":              model.Status,
			"previous_status":     model.PreviousStatus,
			"status_history":      model.StatusHistory,
			"cancelled_at":        model.CancelledAt,
			"cancelled_by":        model.CancelledBy,
			"cancellation_reason": model.CancellationReason,
			"rejection_reason":    model.RejectionReason,
			"confirmed_at":        model.ConfirmedAt,
			"started_at":          model.StartedAt,
			"completed_at":        model.CompletedAt,
			"completion_notes":    model.CompletionNotes,
			"rating":              model.Rating,
			"feedback":            model.Feedback,
			"feedback_date":       model.FeedbackDate,
			"issues":              model.Issues,
			"reschedule_history":  model.RescheduleHistory,
			"refund_status":       model.RefundStatus,
			"refunded_at":         model.RefundedAt,
			"refund_reference":    model.RefundReference,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		if isSlotConflict(result.Error) {
			return domain.NewConflictError("technician already has a booking for this slot")
		}
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// isSlotConflict reports whether err is a unique violation on the
// active-slot index.
func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "active_slot")
	}
	// SQLite in unit-test setups reports unique violations as plain errors.
	return strings.Contains(err.Error(), "idx_bookings_active_slot")
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	s := bk.ToSnapshot()

	addressJSON, err := json.Marshal(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal address: %w", err)
	}
	historyJSON, err := json.Marshal(s.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status history: %w", err)
	}
	issuesJSON, err := json.Marshal(s.Issues)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issues: %w", err)
	}
	rescheduleJSON, err := json.Marshal(s.RescheduleHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reschedule history: %w", err)
	}

	return &BookingModel{
		ID:                 s.ID,
		ClientID:           s.ClientID,
		TechnicianID:       s.TechnicianID,
		Service:            s.Service,
		ContactName:        s.ContactName,
		ContactPhone:       s.ContactPhone,
		Address:            addressJSON,
		ScheduledDate:      s.ScheduledDate,
		ScheduledTime:      s.ScheduledTime,
		ScheduledEndTime:   s.ScheduledEndTime,
		FinalPricePaisa:    s.FinalPricePaisa,
		Currency:           s.Currency,
		Status:             s.Status.String(),
		PreviousStatus:     s.PreviousStatus.String(),
		StatusHistory:      historyJSON,
		CancelledAt:        s.CancelledAt,
		CancelledBy:        s.CancelledBy,
		CancellationReason: s.CancellationReason,
		RejectionReason:    s.RejectionReason,
		ConfirmedAt:        s.ConfirmedAt,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
		CompletionNotes:    s.CompletionNotes,
		Rating:             s.Rating,
		Feedback:           s.Feedback,
		FeedbackDate:       s.FeedbackDate,
		Issues:             issuesJSON,
		RescheduleHistory:  rescheduleJSON,
		RefundStatus:       string(s.RefundStatus),
		RefundedAt:         s.RefundedAt,
		RefundReference:    s.RefundReference,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var address bookingDomain.Address
	if err := json.Unmarshal(m.Address, &address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address: %w", err)
	}

	var history []bookingDomain.StatusHistoryEntry
	if len(m.StatusHistory) > 0 {
		if err := json.Unmarshal(m.StatusHistory, &history); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
		}
	}

	var issues []bookingDomain.Issue
	if len(m.Issues) > 0 {
		if err := json.Unmarshal(m.Issues, &issues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
		}
	}

	var reschedules []bookingDomain.RescheduleEntry
	if len(m.RescheduleHistory) > 0 {
		if err := json.Unmarshal(m.RescheduleHistory, &reschedules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reschedule history: %w", err)
		}
	}

	return bookingDomain.Reconstruct(bookingDomain.Snapshot{
		ID:                 m.ID,
		ClientID:           m.ClientID,
		TechnicianID:       m.TechnicianID,
		Service:            m.Service,
		ContactName:        m.ContactName,
		ContactPhone:       m.ContactPhone,
		Address:            address,
		ScheduledDate:      m.ScheduledDate,
		ScheduledTime:      m.ScheduledTime,
		ScheduledEndTime:   m.ScheduledEndTime,
		FinalPricePaisa:    m.FinalPricePaisa,
		Currency:           m.Currency,
		Status:             bookingDomain.BookingStatus(m.Status),
		PreviousStatus:     bookingDomain.BookingStatus(m.PreviousStatus),
		StatusHistory:      history,
		CancelledAt:        m.CancelledAt,
		CancelledBy:        m.CancelledBy,
		CancellationReason: m.CancellationReason,
		RejectionReason:    m.RejectionReason,
		ConfirmedAt:        m.ConfirmedAt,
		StartedAt:          m.StartedAt,
		CompletedAt:        m.CompletedAt,
		CompletionNotes:    m.CompletionNotes,
		Rating:             m.Rating,
		Feedback:           m.Feedback,
		FeedbackDate:       m.FeedbackDate,
		Issues:             issues,
		RescheduleHistory:  reschedules,
		RefundStatus:       bookingDomain.RefundStatus(m.RefundStatus),
		RefundedAt:         m.RefundedAt,
		RefundReference:    m.RefundReference,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}), nil
}
