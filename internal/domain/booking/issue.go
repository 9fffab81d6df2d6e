package booking

import (
	"time"

	"github.com/google/uuid"
)

// IssueType classifies a client-reported problem with a cancelled booking.
type IssueType string

const (
	IssueTechnicianCancelledAfterAcceptance IssueType = "technician_cancelled_after_acceptance"
	IssueLastMinuteCancellation             IssueType = "last_minute_cancellation"
	IssueUnprofessionalBehavior             IssueType = "unprofessional_behavior"
	IssueNoShow                             IssueType = "no_show"
	IssuePoorCommunication                  IssueType = "poor_communication"
	IssueOther                              IssueType = "other"
)

// IsValid returns true if the issue type is recognized.
func (t IssueType) IsValid() bool {
	switch t {
	case IssueTechnicianCancelledAfterAcceptance, IssueLastMinuteCancellation,
		IssueUnprofessionalBehavior, IssueNoShow, IssuePoorCommunication, IssueOther:
		return true
	}
	return false
}

// IssueSeverity grades how serious a reported issue is.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
	SeverityUrgent IssueSeverity = "urgent"
)

// IsValid returns true if the severity is recognized.
func (s IssueSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityUrgent:
		return true
	}
	return false
}

// IssueStatus is the adjudication state of a reported issue.
type IssueStatus string

const (
	IssuePending     IssueStatus = "pending"
	IssueUnderReview IssueStatus = "under_review"
	IssueResolved    IssueStatus = "resolved"
	IssueDismissed   IssueStatus = "dismissed"
)

// IsValid returns true if the issue status is recognized.
func (s IssueStatus) IsValid() bool {
	switch s {
	case IssuePending, IssueUnderReview, IssueResolved, IssueDismissed:
		return true
	}
	return false
}

// IsOpen returns true while the issue still awaits a final decision.
func (s IssueStatus) IsOpen() bool {
	return s == IssuePending || s == IssueUnderReview
}

// Issue is a client-submitted dispute record attached to a cancelled booking.
// Issues live and die with their parent booking.
type Issue struct {
	ID          uuid.UUID     `json:"id"`
	ReportedBy  uuid.UUID     `json:"reported_by"`
	IssueType   IssueType     `json:"issue_type"`
	Description string        `json:"issue_description"`
	Severity    IssueSeverity `json:"severity"`
	ReportedAt  time.Time     `json:"reported_at"`
	Status      IssueStatus   `json:"status"`
	AdminNotes  string        `json:"admin_notes,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy  *uuid.UUID    `json:"resolved_by,omitempty"`
}
