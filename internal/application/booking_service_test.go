package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	clientDomain "github.com/Aalok376/GharBata-sub001/internal/domain/client"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
	"github.com/Aalok376/GharBata-sub001/internal/events"
)

type serviceFixture struct {
	bookings    *mockBookingRepo
	technicians *mockTechnicianRepo
	clients     *mockClientRepo
	publisher   *nopPublisher
	service     *BookingService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		bookings:    new(mockBookingRepo),
		technicians: new(mockTechnicianRepo),
		clients:     new(mockClientRepo),
		publisher:   new(nopPublisher),
	}
	f.service = NewBookingService(f.bookings, f.technicians, f.clients, f.publisher, nil, zap.NewNop())
	return f
}

func validCreateRequest(technicianID uuid.UUID) CreateBookingRequest {
	return CreateBookingRequest{
		TechnicianID:    technicianID,
		Service:         "plumbing",
		ContactName:     "Sita Sharma",
		ContactPhone:    "+9779801234567",
		Address:         bookingDomain.Address{Street: "12 Lazimpat Road", City: "Kathmandu"},
		ScheduledDate:   "2026-09-15",
		ScheduledTime:   "10:00",
		FinalPricePaisa: 150000,
	}
}

func activeTechnician(t *testing.T, id uuid.UUID) *technicianDomain.Technician {
	t.Helper()
	tech, err := technicianDomain.NewTechnician(id, "Ram Thapa", "+977981", "plumbing")
	require.NoError(t, err)
	return tech
}

func registeredClient(t *testing.T, id uuid.UUID) *clientDomain.Client {
	t.Helper()
	c, err := clientDomain.NewClient(id, "Sita Sharma", "+977980", "sita@example.com")
	require.NoError(t, err)
	return c
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	t.Run("happy path publishes booking.created", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(activeTechnician(t, technicianID), nil)
		f.bookings.On("IsSlotAvailable", ctx, technicianID, mock.Anything, "10:00", bookingDomain.ActiveStatuses(), (*uuid.UUID)(nil)).Return(true, nil)
		f.bookings.On("Save", ctx, mock.Anything).Return(nil)

		dto, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		require.NoError(t, err)
		assert.Equal(t, "pending", dto.Status)
		assert.Equal(t, clientID, dto.ClientID)
		assert.Contains(t, f.publisher.types(), events.BookingCreated)
	})

	t.Run("unknown client is 404", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(nil, domain.NewNotFoundError("Client", clientID.String()))

		_, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("unknown technician is 404", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(nil, domain.NewNotFoundError("Technician", technicianID.String()))

		_, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("banned technician rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		tech := activeTechnician(t, technicianID)
		require.NoError(t, tech.Ban("fraud", technicianDomain.BanPermanent, uuid.New(), 0))
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(tech, nil)

		_, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("malformed date is a validation error", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(activeTechnician(t, technicianID), nil)

		req := validCreateRequest(technicianID)
		req.ScheduledDate = "2026-99-99"
		_, err := f.service.CreateBooking(ctx, clientID, req)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("occupied slot conflicts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(activeTechnician(t, technicianID), nil)
		f.bookings.On("IsSlotAvailable", ctx, technicianID, mock.Anything, "10:00", bookingDomain.ActiveStatuses(), (*uuid.UUID)(nil)).Return(false, nil)

		_, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		assert.True(t, domain.IsConflict(err))
		f.bookings.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("insert racing past the check still conflicts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.clients.On("FindByID", ctx, clientID).Return(registeredClient(t, clientID), nil)
		f.technicians.On("FindByID", ctx, technicianID).Return(activeTechnician(t, technicianID), nil)
		f.bookings.On("IsSlotAvailable", ctx, technicianID, mock.Anything, "10:00", bookingDomain.ActiveStatuses(), (*uuid.UUID)(nil)).Return(true, nil)
		f.bookings.On("Save", ctx, mock.Anything).Return(domain.NewConflictError("technician already has a booking for this slot"))

		_, err := f.service.CreateBooking(ctx, clientID, validCreateRequest(technicianID))
		assert.True(t, domain.IsConflict(err))
	})
}

func seedBooking(t *testing.T, clientID, technicianID uuid.UUID) *bookingDomain.Booking {
	t.Helper()
	bk, err := bookingDomain.NewBooking(
		clientID, technicianID,
		"plumbing", "Sita Sharma", "+977980",
		bookingDomain.Address{Street: "12 Lazimpat Road", City: "Kathmandu"},
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		"10:00", "", 150000,
	)
	require.NoError(t, err)
	return bk
}

func TestAcceptBooking(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	t.Run("assigned technician accepts", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
		f.bookings.On("Update", ctx, bk).Return(nil)

		dto, err := f.service.AcceptBooking(ctx, technicianID, bk.ID())
		require.NoError(t, err)
		assert.Equal(t, "confirmed", dto.Status)
		assert.Equal(t, int64(2), dto.Version)
		assert.Contains(t, f.publisher.types(), events.BookingConfirmed)
	})

	t.Run("other technician forbidden", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)

		_, err := f.service.AcceptBooking(ctx, uuid.New(), bk.ID())
		assert.True(t, domain.IsForbidden(err))
		f.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
		f.bookings.On("Update", ctx, bk).Return(domain.NewConflictError("booking was modified by another transaction"))

		_, err := f.service.AcceptBooking(ctx, technicianID, bk.ID())
		assert.True(t, domain.IsConflict(err))
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	t.Run("stranger forbidden", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)

		_, err := f.service.CancelBooking(ctx, Actor{ID: uuid.New(), Role: auth.RoleClient}, bk.ID(), "reason")
		assert.True(t, domain.IsForbidden(err))
	})

	t.Run("technician cancel after accept flags refund", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		require.NoError(t, bk.Accept(technicianID))
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
		f.bookings.On("Update", ctx, bk).Return(nil)

		dto, err := f.service.CancelBooking(ctx, Actor{ID: technicianID, Role: auth.RoleTechnician}, bk.ID(), "emergency")
		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.Status)
		assert.Equal(t, string(bookingDomain.RefundEligible), dto.RefundStatus)
		require.NotNil(t, dto.CancelledBy)
		assert.Equal(t, technicianID, *dto.CancelledBy)
		assert.Contains(t, f.publisher.types(), events.BookingCancelled)
	})

	t.Run("admin may cancel any booking", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
		f.bookings.On("Update", ctx, bk).Return(nil)

		_, err := f.service.CancelBooking(ctx, Actor{ID: uuid.New(), Role: auth.RoleAdmin}, bk.ID(), "policy violation")
		require.NoError(t, err)
	})
}

func TestRescheduleBooking(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	t.Run("checks the new slot excluding itself", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		require.NoError(t, bk.Accept(technicianID))
		bkID := bk.ID()
		f.bookings.On("FindByID", ctx, bkID).Return(bk, nil)
		f.bookings.On("IsSlotAvailable", ctx, technicianID, mock.Anything, "14:00", bookingDomain.RescheduleConflictStatuses(), &bkID).Return(true, nil)
		f.bookings.On("Update", ctx, bk).Return(nil)

		dto, err := f.service.RescheduleBooking(ctx, Actor{ID: clientID, Role: auth.RoleClient}, bkID,
			RescheduleRequest{NewDate: "2026-09-20", NewTime: "14:00", Reason: "travel"})
		require.NoError(t, err)
		assert.Equal(t, "confirmed", dto.Status)
		assert.Equal(t, "2026-09-20", dto.ScheduledDate)
		assert.Len(t, dto.RescheduleHistory, 1)
	})

	t.Run("malformed new date is a validation error", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)

		_, err := f.service.RescheduleBooking(ctx, Actor{ID: clientID, Role: auth.RoleClient}, bk.ID(),
			RescheduleRequest{NewDate: "20-09-2026", NewTime: "14:00"})
		assert.True(t, domain.IsValidation(err))
		f.bookings.AssertNotCalled(t, "IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("occupied new slot conflicts", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		bkID := bk.ID()
		f.bookings.On("FindByID", ctx, bkID).Return(bk, nil)
		f.bookings.On("IsSlotAvailable", ctx, technicianID, mock.Anything, "14:00", bookingDomain.RescheduleConflictStatuses(), &bkID).Return(false, nil)

		_, err := f.service.RescheduleBooking(ctx, Actor{ID: clientID, Role: auth.RoleClient}, bkID,
			RescheduleRequest{NewDate: "2026-09-20", NewTime: "14:00"})
		assert.True(t, domain.IsConflict(err))
	})
}

func TestListBookings_RoleScoping(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	otherID := uuid.New()

	t.Run("client scoped to own bookings", func(t *testing.T) {
		f := newServiceFixture(t)
		f.bookings.On("List", ctx, mock.MatchedBy(func(fl bookingDomain.Filter) bool {
			return fl.ClientID != nil && *fl.ClientID == callerID && fl.TechnicianID == nil
		})).Return([]*bookingDomain.Booking{}, int64(0), nil)

		_, err := f.service.ListBookings(ctx, Actor{ID: callerID, Role: auth.RoleClient},
			bookingDomain.Filter{ClientID: &otherID, TechnicianID: &otherID})
		require.NoError(t, err)
		f.bookings.AssertExpectations(t)
	})

	t.Run("admin filter passes through", func(t *testing.T) {
		f := newServiceFixture(t)
		f.bookings.On("List", ctx, mock.MatchedBy(func(fl bookingDomain.Filter) bool {
			return fl.TechnicianID != nil && *fl.TechnicianID == otherID
		})).Return([]*bookingDomain.Booking{}, int64(0), nil)

		_, err := f.service.ListBookings(ctx, Actor{ID: callerID, Role: auth.RoleAdmin},
			bookingDomain.Filter{TechnicianID: &otherID})
		require.NoError(t, err)
	})
}

func TestSubmitFeedback_OnlyOwningClient(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	f := newServiceFixture(t)
	bk := seedBooking(t, clientID, technicianID)
	require.NoError(t, bk.Accept(technicianID))
	require.NoError(t, bk.Start(technicianID))
	require.NoError(t, bk.Complete(technicianID, "", nil))
	f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
	f.bookings.On("Update", ctx, bk).Return(nil)

	_, err := f.service.SubmitFeedback(ctx, uuid.New(), bk.ID(), 5, "great")
	assert.True(t, domain.IsForbidden(err))

	dto, err := f.service.SubmitFeedback(ctx, clientID, bk.ID(), 5, "great")
	require.NoError(t, err)
	require.NotNil(t, dto.Rating)
	assert.Equal(t, 5, *dto.Rating)
}

func TestRecordRefund(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()

	t.Run("marks eligible booking processed", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		require.NoError(t, bk.Accept(technicianID))
		require.NoError(t, bk.Cancel(technicianID, "emergency"))
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)
		f.bookings.On("Update", ctx, bk).Return(nil)

		require.NoError(t, f.service.RecordRefund(ctx, bk.ID(), "REF-42"))
		assert.Equal(t, bookingDomain.RefundProcessed, bk.RefundStatus())
	})

	t.Run("replayed event is swallowed", func(t *testing.T) {
		f := newServiceFixture(t)
		bk := seedBooking(t, clientID, technicianID)
		f.bookings.On("FindByID", ctx, bk.ID()).Return(bk, nil)

		require.NoError(t, f.service.RecordRefund(ctx, bk.ID(), "REF-42"))
		f.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestGetStats_FallsThroughWithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	expected := &bookingDomain.Stats{TotalBookings: 3, ByStatus: map[string]int64{"completed": 2, "pending": 1}}
	f.bookings.On("GetStats", ctx, bookingDomain.StatsFilter{}).Return(expected, nil)

	stats, err := f.service.GetStats(ctx, bookingDomain.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBookings)
}
