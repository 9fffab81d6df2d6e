package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	clientDomain "github.com/Aalok376/GharBata-sub001/internal/domain/client"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
	"github.com/Aalok376/GharBata-sub001/internal/kafka"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	args := m.Called(ctx, id)
	if bk := args.Get(0); bk != nil {
		return bk.(*bookingDomain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) List(ctx context.Context, filter bookingDomain.Filter) ([]*bookingDomain.Booking, int64, error) {
	args := m.Called(ctx, filter)
	var bookings []*bookingDomain.Booking
	if v := args.Get(0); v != nil {
		bookings = v.([]*bookingDomain.Booking)
	}
	return bookings, args.Get(1).(int64), args.Error(2)
}

func (m *mockBookingRepo) IsSlotAvailable(ctx context.Context, technicianID uuid.UUID, date time.Time, timeOfDay string, statuses []bookingDomain.BookingStatus, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, technicianID, date, timeOfDay, statuses, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingRepo) FindByTechnicianAndStatuses(ctx context.Context, technicianID uuid.UUID, statuses []bookingDomain.BookingStatus) ([]*bookingDomain.Booking, error) {
	args := m.Called(ctx, technicianID, statuses)
	var bookings []*bookingDomain.Booking
	if v := args.Get(0); v != nil {
		bookings = v.([]*bookingDomain.Booking)
	}
	return bookings, args.Error(1)
}

func (m *mockBookingRepo) GetStats(ctx context.Context, filter bookingDomain.StatsFilter) (*bookingDomain.Stats, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.(*bookingDomain.Stats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) GetIssueStats(ctx context.Context) (*bookingDomain.IssueStats, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*bookingDomain.IssueStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	return m.Called(ctx, bk).Error(0)
}

func (m *mockBookingRepo) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	return m.Called(ctx, bk).Error(0)
}

type mockTechnicianRepo struct {
	mock.Mock
}

func (m *mockTechnicianRepo) FindByID(ctx context.Context, id uuid.UUID) (*technicianDomain.Technician, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*technicianDomain.Technician), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTechnicianRepo) FindBanned(ctx context.Context, page, limit int) ([]*technicianDomain.Technician, int64, error) {
	args := m.Called(ctx, page, limit)
	var technicians []*technicianDomain.Technician
	if v := args.Get(0); v != nil {
		technicians = v.([]*technicianDomain.Technician)
	}
	return technicians, args.Get(1).(int64), args.Error(2)
}

func (m *mockTechnicianRepo) FindExpiredBans(ctx context.Context, now time.Time) ([]*technicianDomain.Technician, error) {
	args := m.Called(ctx, now)
	var technicians []*technicianDomain.Technician
	if v := args.Get(0); v != nil {
		technicians = v.([]*technicianDomain.Technician)
	}
	return technicians, args.Error(1)
}

func (m *mockTechnicianRepo) Save(ctx context.Context, tech *technicianDomain.Technician) error {
	return m.Called(ctx, tech).Error(0)
}

func (m *mockTechnicianRepo) Update(ctx context.Context, tech *technicianDomain.Technician) error {
	return m.Called(ctx, tech).Error(0)
}

type mockClientRepo struct {
	mock.Mock
}

func (m *mockClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*clientDomain.Client, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*clientDomain.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientRepo) Save(ctx context.Context, c *clientDomain.Client) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockClientRepo) Update(ctx context.Context, c *clientDomain.Client) error {
	return m.Called(ctx, c).Error(0)
}

// nopPublisher records published event types without a broker.
type nopPublisher struct {
	published []kafka.CloudEvent
}

func (p *nopPublisher) PublishEvent(_ context.Context, _, _ string, event kafka.CloudEvent) error {
	p.published = append(p.published, event)
	return nil
}

func (p *nopPublisher) types() []string {
	out := make([]string, len(p.published))
	for i, e := range p.published {
		out[i] = e.Type
	}
	return out
}

// fakeTxRunner hands the same repositories to the callback, without a real
// transaction.
type fakeTxRunner struct {
	bookings    bookingDomain.Repository
	technicians technicianDomain.Repository
}

func (f *fakeTxRunner) InTransaction(_ context.Context, fn func(bookingDomain.Repository, technicianDomain.Repository) error) error {
	return fn(f.bookings, f.technicians)
}
