package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

const (
	minStreetLen  = 10
	maxStreetLen  = 200
	maxReasonLen  = 500
	maxNotesLen   = 1000
	minRating     = 1
	maxRating     = 5
)

// RefundStatus tracks whether a cancelled booking qualifies for, or has
// received, a wallet refund. Refund execution belongs to the payment service.
type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundEligible  RefundStatus = "eligible"
	RefundProcessed RefundStatus = "processed"
)

// Booking is the aggregate root for one scheduled service engagement between
// a client and a technician.
type Booking struct {
	id           uuid.UUID
	clientID     uuid.UUID
	technicianID uuid.UUID
	service      string

	contactName  string
	contactPhone string
	address      Address

	scheduledDate    time.Time
	scheduledTime    string
	scheduledEndTime string

	finalPricePaisa int64
	currency        string

	status         BookingStatus
	previousStatus BookingStatus
	statusHistory  []StatusHistoryEntry

	cancelledAt        *time.Time
	cancelledBy        *uuid.UUID
	cancellationReason string
	rejectionReason    string

	confirmedAt     *time.Time
	startedAt       *time.Time
	completedAt     *time.Time
	completionNotes string

	rating       *int
	feedback     string
	feedbackDate *time.Time

	issues            []Issue
	rescheduleHistory []RescheduleEntry

	refundStatus    RefundStatus
	refundedAt      *time.Time
	refundReference string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking aggregate with status=pending and a
// single "created" entry in the status history.
func NewBooking(
	clientID, technicianID uuid.UUID,
	service, contactName, contactPhone string,
	address Address,
	scheduledDate time.Time,
	scheduledTime, scheduledEndTime string,
	finalPricePaisa int64,
) (*Booking, error) {
	if clientID == uuid.Nil {
		return nil, domain.NewValidationError("client ID is required")
	}
	if technicianID == uuid.Nil {
		return nil, domain.NewValidationError("technician ID is required")
	}
	if service == "" {
		return nil, domain.NewValidationError("service is required")
	}
	if contactName == "" {
		return nil, domain.NewValidationError("contact name is required")
	}
	if l := len(address.Street); l < minStreetLen || l > maxStreetLen {
		return nil, domain.NewValidationError(fmt.Sprintf("street address must be %d-%d characters", minStreetLen, maxStreetLen))
	}
	if address.City == "" {
		return nil, domain.NewValidationError("city is required")
	}
	if scheduledDate.IsZero() {
		return nil, domain.NewValidationError("scheduled date is required")
	}
	if !ValidTimeOfDay(scheduledTime) {
		return nil, domain.NewValidationError("scheduled time must be in HH:MM format")
	}
	if scheduledEndTime != "" && !ValidTimeOfDay(scheduledEndTime) {
		return nil, domain.NewValidationError("scheduled end time must be in HH:MM format")
	}
	if finalPricePaisa < 0 {
		return nil, domain.NewValidationError("final price must be non-negative")
	}

	now := time.Now().UTC()
	b := &Booking{
		id:               uuid.New(),
		clientID:         clientID,
		technicianID:     technicianID,
		service:          service,
		contactName:      contactName,
		contactPhone:     contactPhone,
		address:          address,
		scheduledDate:    scheduledDate,
		scheduledTime:    scheduledTime,
		scheduledEndTime: scheduledEndTime,
		finalPricePaisa:  finalPricePaisa,
		currency:         domain.CurrencyNPR,
		status:           StatusPending,
		refundStatus:     RefundNone,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}
	b.statusHistory = append(b.statusHistory, StatusHistoryEntry{
		Status:    StatusPending,
		ChangedBy: clientID,
		ChangedAt: now,
		Reason:    "booking created",
	})
	return b, nil
}

// Snapshot is the persistence representation of a Booking's full state.
type Snapshot struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	TechnicianID       uuid.UUID
	Service            string
	ContactName        string
	ContactPhone       string
	Address            Address
	ScheduledDate      time.Time
	ScheduledTime      string
	ScheduledEndTime   string
	FinalPricePaisa    int64
	Currency           string
	Status             BookingStatus
	PreviousStatus     BookingStatus
	StatusHistory      []StatusHistoryEntry
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancellationReason string
	RejectionReason    string
	ConfirmedAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CompletionNotes    string
	Rating             *int
	Feedback           string
	FeedbackDate       *time.Time
	Issues             []Issue
	RescheduleHistory  []RescheduleEntry
	RefundStatus       RefundStatus
	RefundedAt         *time.Time
	RefundReference    string
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(s Snapshot) *Booking {
	return &Booking{
		id:                 s.ID,
		clientID:           s.ClientID,
		technicianID:       s.TechnicianID,
		service:            s.Service,
		contactName:        s.ContactName,
		contactPhone:       s.ContactPhone,
		address:            s.Address,
		scheduledDate:      s.ScheduledDate,
		scheduledTime:      s.ScheduledTime,
		scheduledEndTime:   s.ScheduledEndTime,
		finalPricePaisa:    s.FinalPricePaisa,
		currency:           s.Currency,
		status:             s.Status,
		previousStatus:     s.PreviousStatus,
		statusHistory:      s.StatusHistory,
		cancelledAt:        s.CancelledAt,
		cancelledBy:        s.CancelledBy,
		cancellationReason: s.CancellationReason,
		rejectionReason:    s.RejectionReason,
		confirmedAt:        s.ConfirmedAt,
		startedAt:          s.StartedAt,
		completedAt:        s.CompletedAt,
		completionNotes:    s.CompletionNotes,
		rating:             s.Rating,
		feedback:           s.Feedback,
		feedbackDate:       s.FeedbackDate,
		issues:             s.Issues,
		rescheduleHistory:  s.RescheduleHistory,
		refundStatus:       s.RefundStatus,
		refundedAt:         s.RefundedAt,
		refundReference:    s.RefundReference,
		version:            s.Version,
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
	}
}

// ToSnapshot exports the booking's full state for persistence.
func (b *Booking) ToSnapshot() Snapshot {
	return Snapshot{
		ID:                 b.id,
		ClientID:           b.clientID,
		TechnicianID:       b.technicianID,
		Service:            b.service,
		ContactName:        b.contactName,
		ContactPhone:       b.contactPhone,
		Address:            b.address,
		ScheduledDate:      b.scheduledDate,
		ScheduledTime:      b.scheduledTime,
		ScheduledEndTime:   b.scheduledEndTime,
		FinalPricePaisa:    b.finalPricePaisa,
		Currency:           b.currency,
		Status:             b.status,
		PreviousStatus:     b.previousStatus,
		StatusHistory:      b.statusHistory,
		CancelledAt:        b.cancelledAt,
		CancelledBy:        b.cancelledBy,
		CancellationReason: b.cancellationReason,
		RejectionReason:    b.rejectionReason,
		ConfirmedAt:        b.confirmedAt,
		StartedAt:          b.startedAt,
		CompletedAt:        b.completedAt,
		CompletionNotes:    b.completionNotes,
		Rating:             b.rating,
		Feedback:           b.feedback,
		FeedbackDate:       b.feedbackDate,
		Issues:             b.issues,
		RescheduleHistory:  b.rescheduleHistory,
		RefundStatus:       b.refundStatus,
		RefundedAt:         b.refundedAt,
		RefundReference:    b.refundReference,
		Version:            b.version,
		CreatedAt:          b.createdAt,
		UpdatedAt:          b.updatedAt,
	}
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID               { return b.id }
func (b *Booking) ClientID() uuid.UUID         { return b.clientID }
func (b *Booking) TechnicianID() uuid.UUID     { return b.technicianID }
func (b *Booking) Service() string             { return b.service }
func (b *Booking) ContactName() string         { return b.contactName }
func (b *Booking) ContactPhone() string        { return b.contactPhone }
func (b *Booking) Address() Address            { return b.address }
func (b *Booking) ScheduledDate() time.Time    { return b.scheduledDate }
func (b *Booking) ScheduledTime() string       { return b.scheduledTime }
func (b *Booking) ScheduledEndTime() string    { return b.scheduledEndTime }
func (b *Booking) FinalPricePaisa() int64      { return b.finalPricePaisa }
func (b *Booking) Currency() string            { return b.currency }
func (b *Booking) Status() BookingStatus       { return b.status }
func (b *Booking) PreviousStatus() BookingStatus { return b.previousStatus }
func (b *Booking) CancelledAt() *time.Time     { return b.cancelledAt }
func (b *Booking) CancelledBy() *uuid.UUID     { return b.cancelledBy }
func (b *Booking) CancellationReason() string  { return b.cancellationReason }
func (b *Booking) RejectionReason() string     { return b.rejectionReason }
func (b *Booking) ConfirmedAt() *time.Time     { return b.confirmedAt }
func (b *Booking) StartedAt() *time.Time       { return b.startedAt }
func (b *Booking) CompletedAt() *time.Time     { return b.completedAt }
func (b *Booking) CompletionNotes() string     { return b.completionNotes }
func (b *Booking) Rating() *int                { return b.rating }
func (b *Booking) Feedback() string            { return b.feedback }
func (b *Booking) FeedbackDate() *time.Time    { return b.feedbackDate }
func (b *Booking) RefundStatus() RefundStatus  { return b.refundStatus }
func (b *Booking) RefundedAt() *time.Time      { return b.refundedAt }
func (b *Booking) RefundReference() string     { return b.refundReference }
func (b *Booking) Version() int64              { return b.version }
func (b *Booking) CreatedAt() time.Time        { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time        { return b.updatedAt }

// StatusHistory returns a copy of the append-only status audit log.
func (b *Booking) StatusHistory() []StatusHistoryEntry {
	out := make([]StatusHistoryEntry, len(b.statusHistory))
	copy(out, b.statusHistory)
	return out
}

// Issues returns a copy of the issues reported against this booking.
func (b *Booking) Issues() []Issue {
	out := make([]Issue, len(b.issues))
	copy(out, b.issues)
	return out
}

// RescheduleHistory returns a copy of the reschedule audit log.
func (b *Booking) RescheduleHistory() []RescheduleEntry {
	out := make([]RescheduleEntry, len(b.rescheduleHistory))
	copy(out, b.rescheduleHistory)
	return out
}

// --- Derived projections ---

// FullAddress renders the service location as a single line.
func (b *Booking) FullAddress() string { return b.address.Full() }

// CustomerName is the client-supplied contact name on the booking.
func (b *Booking) CustomerName() string { return b.contactName }

// ServiceDurationMinutes reports completed_at - started_at in whole minutes.
// ok is false until the booking has both timestamps.
func (b *Booking) ServiceDurationMinutes() (minutes int64, ok bool) {
	if b.startedAt == nil || b.completedAt == nil {
		return 0, false
	}
	return int64(b.completedAt.Sub(*b.startedAt).Minutes()), true
}

// WasAcceptedThenCancelled reports whether the booking is cancelled after a
// technician had accepted it. Checked both through the history log and
// previous_status, since older records may predate the history entries.
func (b *Booking) WasAcceptedThenCancelled() bool {
	if b.status != StatusCancelled {
		return false
	}
	if b.previousStatus == StatusConfirmed {
		return true
	}
	for _, e := range b.statusHistory {
		if e.Status == StatusConfirmed {
			return true
		}
	}
	return false
}

// HasOpenIssues reports whether any issue still awaits adjudication.
func (b *Booking) HasOpenIssues() bool {
	for _, is := range b.issues {
		if is.Status.IsOpen() {
			return true
		}
	}
	return false
}

// IsRefundEligible reports whether the cancellation qualifies for a wallet
// refund: the technician had accepted the work and the client did not cancel
// it themselves.
func (b *Booking) IsRefundEligible() bool {
	return b.refundStatus == RefundEligible
}

// --- Behavior ---

// Accept transitions the booking from pending to confirmed. Only the
// technician named on the booking may accept it.
func (b *Booking) Accept(technicianID uuid.UUID) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	if technicianID != b.technicianID {
		return domain.NewForbiddenError("only the assigned technician can accept this booking")
	}
	now := time.Now().UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.appendHistory(StatusConfirmed, technicianID, "", now)
	return nil
}

// Reject declines a pending booking, cancelling it with the technician as
// the cancelling party.
func (b *Booking) Reject(technicianID uuid.UUID, reason string) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if technicianID != b.technicianID {
		return domain.NewForbiddenError("only the assigned technician can reject this booking")
	}
	if len(reason) > maxReasonLen {
		return domain.NewValidationError("rejection reason is too long")
	}
	now := time.Now().UTC()
	b.previousStatus = b.status
	b.status = StatusCancelled
	b.cancelledAt = &now
	b.cancelledBy = &technicianID
	b.rejectionReason = reason
	b.appendHistory(StatusCancelled, technicianID, reason, now)
	return nil
}

// Cancel transitions the booking to cancelled, recording who cancelled and
// why. Re-cancelling or cancelling a completed booking is rejected.
func (b *Booking) Cancel(cancelledBy uuid.UUID, reason string) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if len(reason) > maxReasonLen {
		return domain.NewValidationError("cancellation reason is too long")
	}
	now := time.Now().UTC()
	b.previousStatus = b.status
	b.status = StatusCancelled
	b.cancelledAt = &now
	b.cancelledBy = &cancelledBy
	b.cancellationReason = reason
	if b.WasAcceptedThenCancelled() && cancelledBy != b.clientID {
		b.refundStatus = RefundEligible
	}
	b.appendHistory(StatusCancelled, cancelledBy, reason, now)
	return nil
}

// Start transitions the booking from confirmed to in_progress. Only the
// assigned technician may start the service.
func (b *Booking) Start(technicianID uuid.UUID) error {
	if b.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(b.status), string(StatusInProgress))
	}
	if technicianID != b.technicianID {
		return domain.NewForbiddenError("only the assigned technician can start this booking")
	}
	now := time.Now().UTC()
	b.status = StatusInProgress
	b.startedAt = &now
	b.appendHistory(StatusInProgress, technicianID, "", now)
	return nil
}

// Complete transitions the booking from in_progress to completed. A distinct
// non-negative actual price overrides the quoted final price.
func (b *Booking) Complete(technicianID uuid.UUID, notes string, actualPricePaisa *int64) error {
	if b.status != StatusInProgress {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if technicianID != b.technicianID {
		return domain.NewForbiddenError("only the assigned technician can complete this booking")
	}
	if len(notes) > maxNotesLen {
		return domain.NewValidationError("completion notes are too long")
	}
	if actualPricePaisa != nil && *actualPricePaisa < 0 {
		return domain.NewValidationError("actual price must be non-negative")
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.completionNotes = notes
	if actualPricePaisa != nil && *actualPricePaisa != b.finalPricePaisa {
		b.finalPricePaisa = *actualPricePaisa
	}
	b.appendHistory(StatusCompleted, technicianID, "", now)
	return nil
}

// Reschedule moves the booking to a new date and time, appending an audit
// entry. Completed, cancelled and in-progress bookings cannot be moved; the
// caller must have verified the new slot's availability first. The booking
// lands in confirmed regardless of its origin state.
func (b *Booking) Reschedule(rescheduledBy uuid.UUID, newDate time.Time, newTime, reason string) error {
	switch b.status {
	case StatusCompleted, StatusCancelled, StatusInProgress:
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	if newDate.IsZero() {
		return domain.NewValidationError("new date is required")
	}
	if !ValidTimeOfDay(newTime) {
		return domain.NewValidationError("new time must be in HH:MM format")
	}
	if len(reason) > maxReasonLen {
		return domain.NewValidationError("reschedule reason is too long")
	}
	now := time.Now().UTC()
	b.rescheduleHistory = append(b.rescheduleHistory, RescheduleEntry{
		OldDate:       b.scheduledDate.Format(DateLayout),
		OldTime:       b.scheduledTime,
		NewDate:       newDate.Format(DateLayout),
		NewTime:       newTime,
		RescheduledBy: rescheduledBy,
		RescheduledAt: now,
		Reason:        reason,
	})
	b.scheduledDate = newDate
	b.scheduledTime = newTime
	b.status = StatusConfirmed
	b.appendHistory(StatusConfirmed, rescheduledBy, reason, now)
	return nil
}

// SubmitFeedback records a rating and feedback text on a completed booking.
// Resubmission overwrites the previous feedback.
func (b *Booking) SubmitFeedback(rating int, feedback string) error {
	if b.status != StatusCompleted {
		return domain.NewInvalidStateError(string(b.status), "feedback")
	}
	if rating < minRating || rating > maxRating {
		return domain.NewValidationError(fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	now := time.Now().UTC()
	b.rating = &rating
	b.feedback = feedback
	b.feedbackDate = &now
	b.updatedAt = now
	return nil
}

// CanRaiseIssue reports whether the given client may report an issue: the
// booking is cancelled, the client did not cancel it themselves, and the
// technician had accepted it at some point.
func (b *Booking) CanRaiseIssue(clientID uuid.UUID) bool {
	if b.status != StatusCancelled {
		return false
	}
	if b.cancelledBy != nil && *b.cancelledBy == clientID {
		return false
	}
	return b.WasAcceptedThenCancelled()
}

// ReportIssue appends a new issue in pending state. At most one open issue
// may exist per booking.
func (b *Booking) ReportIssue(reportedBy uuid.UUID, issueType IssueType, description string, severity IssueSeverity) error {
	if b.status != StatusCancelled {
		return domain.NewInvalidStateError(string(b.status), "issue report")
	}
	if b.cancelledBy != nil && *b.cancelledBy == reportedBy {
		return domain.NewForbiddenError("cannot report an issue against your own cancellation")
	}
	if !b.WasAcceptedThenCancelled() {
		return domain.NewForbiddenError("issues can only be reported for bookings the technician had accepted")
	}
	if !issueType.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid issue type: %s", issueType))
	}
	if description == "" {
		return domain.NewValidationError("issue description is required")
	}
	if len(description) > maxNotesLen {
		return domain.NewValidationError("issue description is too long")
	}
	if severity == "" {
		severity = SeverityMedium
	}
	if !severity.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid issue severity: %s", severity))
	}
	if b.HasOpenIssues() {
		return domain.NewConflictError("an open issue already exists for this booking")
	}
	now := time.Now().UTC()
	b.issues = append(b.issues, Issue{
		ID:          uuid.New(),
		ReportedBy:  reportedBy,
		IssueType:   issueType,
		Description: description,
		Severity:    severity,
		ReportedAt:  now,
		Status:      IssuePending,
	})
	b.updatedAt = now
	return nil
}

// ResolveIssue adjudicates a reported issue. Moving to under_review keeps the
// issue open; resolved and dismissed stamp the resolver.
func (b *Booking) ResolveIssue(issueID uuid.UUID, status IssueStatus, adminNotes string, resolvedBy uuid.UUID) error {
	if !status.IsValid() || status == IssuePending {
		return domain.NewValidationError(fmt.Sprintf("invalid issue resolution status: %s", status))
	}
	for i := range b.issues {
		if b.issues[i].ID != issueID {
			continue
		}
		now := time.Now().UTC()
		b.issues[i].Status = status
		b.issues[i].AdminNotes = adminNotes
		if !status.IsOpen() {
			b.issues[i].ResolvedAt = &now
			b.issues[i].ResolvedBy = &resolvedBy
		}
		b.updatedAt = now
		return nil
	}
	return domain.NewNotFoundError("Issue", issueID.String())
}

// MarkRefundProcessed records that the payment service has refunded the
// client's wallet for this cancellation.
func (b *Booking) MarkRefundProcessed(reference string) error {
	if b.refundStatus != RefundEligible {
		return domain.NewInvalidStateError(string(b.refundStatus), string(RefundProcessed))
	}
	now := time.Now().UTC()
	b.refundStatus = RefundProcessed
	b.refundedAt = &now
	b.refundReference = reference
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

func (b *Booking) appendHistory(status BookingStatus, changedBy uuid.UUID, reason string, at time.Time) {
	b.statusHistory = append(b.statusHistory, StatusHistoryEntry{
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: at,
		Reason:    reason,
	})
	b.updatedAt = at
}
