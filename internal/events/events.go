// Package events defines the topics, event types, and payloads exchanged
// with the rest of the platform, plus the consumers for inbound topics.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Aalok376/GharBata-sub001/internal/kafka"
)

// Topics.
const (
	TopicBookingEvents    = "booking.events"
	TopicTechnicianEvents = "technician.events"
	TopicPaymentEvents    = "payment.events"
	TopicIdentityEvents   = "identity.events"
)

// Outbound event types.
const (
	BookingCreated       = "booking.created"
	BookingConfirmed     = "booking.confirmed"
	BookingRejected      = "booking.rejected"
	BookingCancelled     = "booking.cancelled"
	BookingStarted       = "booking.started"
	BookingCompleted     = "booking.completed"
	BookingRescheduled   = "booking.rescheduled"
	BookingIssueReported = "booking.issue_reported"

	TechnicianBanned   = "technician.banned"
	TechnicianUnbanned = "technician.unbanned"
)

// Inbound event types.
const (
	PaymentRefundProcessed = "payment.refund_processed"
	UserRegistered         = "user.registered"
	UserDeactivated        = "user.deactivated"
)

// Publisher is the outbound side of the event bus as the application
// layer sees it.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// BookingCreatedEvent announces a new booking request.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ClientID      uuid.UUID `json:"client_id"`
	TechnicianID  uuid.UUID `json:"technician_id"`
	Service       string    `json:"service"`
	ScheduledDate string    `json:"scheduled_date"`
	ScheduledTime string    `json:"scheduled_time"`
	PricePaisa    int64     `json:"price_paisa"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingStatusEvent covers the confirm/reject/start/complete transitions.
type BookingStatusEvent struct {
	BookingID    uuid.UUID `json:"booking_id"`
	ClientID     uuid.UUID `json:"client_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	Status       string    `json:"status"`
	ChangedBy    uuid.UUID `json:"changed_by"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// BookingCancelledEvent carries refund eligibility for downstream payment
// processing.
type BookingCancelledEvent struct {
	BookingID      uuid.UUID `json:"booking_id"`
	ClientID       uuid.UUID `json:"client_id"`
	TechnicianID   uuid.UUID `json:"technician_id"`
	CancelledBy    uuid.UUID `json:"cancelled_by"`
	Reason         string    `json:"reason"`
	RefundEligible bool      `json:"refund_eligible"`
	PricePaisa     int64     `json:"price_paisa"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// BookingRescheduledEvent announces a slot change.
type BookingRescheduledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	TechnicianID  uuid.UUID `json:"technician_id"`
	OldDate       string    `json:"old_date"`
	OldTime       string    `json:"old_time"`
	NewDate       string    `json:"new_date"`
	NewTime       string    `json:"new_time"`
	RescheduledBy uuid.UUID `json:"rescheduled_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// IssueReportedEvent announces a client complaint against a technician.
type IssueReportedEvent struct {
	BookingID    uuid.UUID `json:"booking_id"`
	IssueID      uuid.UUID `json:"issue_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	ReportedBy   uuid.UUID `json:"reported_by"`
	IssueType    string    `json:"issue_type"`
	Severity     string    `json:"severity"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TechnicianBannedEvent announces a ban, including how many active
// bookings were cancelled as part of it.
type TechnicianBannedEvent struct {
	TechnicianID      uuid.UUID  `json:"technician_id"`
	Reason            string     `json:"reason"`
	Severity          string     `json:"severity"`
	BanEndDate        *time.Time `json:"ban_end_date,omitempty"`
	BannedBy          uuid.UUID  `json:"banned_by"`
	CancelledBookings int        `json:"cancelled_bookings"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// TechnicianUnbannedEvent announces a ban lift.
type TechnicianUnbannedEvent struct {
	TechnicianID uuid.UUID `json:"technician_id"`
	LiftedBy     uuid.UUID `json:"lifted_by"`
	Reason       string    `json:"reason"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RefundProcessedEvent is consumed from the payment service.
type RefundProcessedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	Reference   string    `json:"reference"`
	AmountPaisa int64     `json:"amount_paisa"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// UserRegisteredEvent is consumed from the identity service.
type UserRegisteredEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Service    string    `json:"service,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserDeactivatedEvent is consumed from the identity service.
type UserDeactivatedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}
