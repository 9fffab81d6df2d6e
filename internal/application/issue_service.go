package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	"github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/metrics"
)

// ReportIssueRequest holds a client complaint against a technician.
type ReportIssueRequest struct {
	IssueType   string `json:"issue_type" binding:"required"`
	Description string `json:"issue_description" binding:"required"`
	Severity    string `json:"severity"`
}

// ResolveIssueRequest holds an admin's adjudication of a reported issue.
type ResolveIssueRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// IssueService handles the issue reporting and resolution use cases.
type IssueService struct {
	bookings *BookingService
	repo     bookingDomain.Repository
	logger   *zap.Logger
}

// NewIssueService creates a new IssueService.
func NewIssueService(bookings *BookingService, repo bookingDomain.Repository, logger *zap.Logger) *IssueService {
	return &IssueService{bookings: bookings, repo: repo, logger: logger}
}

// ReportIssue records a client complaint on a cancelled booking. Only the
// booking's client may report, only when the technician had accepted the
// booking first, and at most one issue may be open at a time.
func (s *IssueService) ReportIssue(ctx context.Context, clientID, bookingID uuid.UUID, req ReportIssueRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if clientID != bk.ClientID() {
		return nil, domain.NewForbiddenError("only the booking's client may report an issue")
	}

	if err := bk.ReportIssue(clientID, bookingDomain.IssueType(req.IssueType), req.Description, bookingDomain.IssueSeverity(req.Severity)); err != nil {
		return nil, err
	}

	if err := s.bookings.persist(ctx, bk); err != nil {
		return nil, err
	}

	issues := bk.Issues()
	reported := issues[len(issues)-1]
	metrics.IssuesReported.WithLabelValues(string(reported.Severity)).Inc()

	evt := events.IssueReportedEvent{
		BookingID:    bk.ID(),
		IssueID:      reported.ID,
		TechnicianID: bk.TechnicianID(),
		ReportedBy:   clientID,
		IssueType:    string(reported.IssueType),
		Severity:     string(reported.Severity),
		OccurredAt:   time.Now().UTC(),
	}
	s.bookings.publishEvent(ctx, events.TopicBookingEvents, events.BookingIssueReported, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// ResolveIssue adjudicates a reported issue on behalf of an admin.
func (s *IssueService) ResolveIssue(ctx context.Context, adminID, bookingID, issueID uuid.UUID, req ResolveIssueRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.ResolveIssue(issueID, bookingDomain.IssueStatus(req.Status), req.AdminNotes, adminID); err != nil {
		return nil, err
	}

	if err := s.bookings.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("issue resolved",
		zap.String("booking_id", bookingID.String()),
		zap.String("issue_id", issueID.String()),
		zap.String("status", req.Status),
	)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetIssueStatistics returns issue counts grouped by status and severity.
func (s *IssueService) GetIssueStatistics(ctx context.Context) (*bookingDomain.IssueStats, error) {
	return s.repo.GetIssueStats(ctx)
}
