package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows booking list queries. Nil fields are ignored.
type Filter struct {
	TechnicianID *uuid.UUID
	ClientID     *uuid.UUID
	Status       *BookingStatus
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	Limit        int
}

// StatsFilter scopes the statistics overview.
type StatsFilter struct {
	TechnicianID *uuid.UUID
	DateFrom     *time.Time
	DateTo       *time.Time
}

// Stats is the aggregate booking overview for the admin dashboard.
type Stats struct {
	TotalBookings     int64            `json:"total_bookings"`
	ByStatus          map[string]int64 `json:"by_status"`
	CompletedBookings int64            `json:"completed_bookings"`
	TotalRevenuePaisa int64            `json:"total_revenue_paisa"`
	AverageRating     float64          `json:"average_rating"`
}

// IssueStats aggregates reported issues across all bookings.
type IssueStats struct {
	TotalIssues int64            `json:"total_issues"`
	ByStatus    map[string]int64 `json:"by_status"`
	BySeverity  map[string]int64 `json:"by_severity"`
}

// Repository defines the persistence contract for booking aggregates.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// List retrieves bookings matching the filter with pagination.
	List(ctx context.Context, filter Filter) ([]*Booking, int64, error)

	// IsSlotAvailable reports whether no booking in any of the given statuses
	// occupies the (technician, date, time) slot, optionally excluding one
	// booking (used when rescheduling that same booking).
	IsSlotAvailable(ctx context.Context, technicianID uuid.UUID, date time.Time, timeOfDay string, statuses []BookingStatus, excludeID *uuid.UUID) (bool, error)

	// FindByTechnicianAndStatuses retrieves all bookings of a technician in
	// any of the given statuses (ban cascade).
	FindByTechnicianAndStatuses(ctx context.Context, technicianID uuid.UUID, statuses []BookingStatus) ([]*Booking, error)

	// GetStats returns the aggregate booking overview.
	GetStats(ctx context.Context, filter StatsFilter) (*Stats, error)

	// GetIssueStats returns issue counts grouped by status and severity.
	GetIssueStats(ctx context.Context) (*IssueStats, error)

	// Save persists a new booking. A slot collision surfaces as a conflict.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
