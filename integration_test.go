//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aalok376/GharBata-sub001/internal/application"
	"github.com/Aalok376/GharBata-sub001/internal/domain"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	"github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/repository"
)

// TestRefundProcessed_MarksBookingRefunded verifies that when a
// RefundProcessedEvent is published to payment.events, the booking service
// picks it up and stamps the refund onto the cancelled booking.
func TestRefundProcessed_MarksBookingRefunded(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	bookingID := uuid.New()
	clientID := uuid.New()
	technicianID := uuid.New()
	seedCancelledBookingAwaitingRefund(t, infra.DB, bookingID, clientID, technicianID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := events.RefundProcessedEvent{
		BookingID:   bookingID,
		Reference:   "RF-2026-000042",
		AmountPaisa: 150000,
		OccurredAt:  time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, events.TopicPaymentEvents,
		"payment-service", events.PaymentRefundProcessed, bookingID.String(), evt)

	model := waitForRefundStatus(t, infra.DB, bookingID, "processed", 15*time.Second)
	assert.Equal(t, "RF-2026-000042", model.RefundReference)
	assert.NotNil(t, model.RefundedAt, "refunded_at should be set")
	assert.Equal(t, "cancelled", model.Status, "refund must not change booking status")
	assert.Equal(t, int64(4), model.Version, "refund should bump the version")
}

// TestSlotUniqueIndex_RejectsConcurrentDoubleBooking verifies the database
// itself rejects a second active booking for the same technician slot, so
// two requests racing past the availability check cannot both land.
func TestSlotUniqueIndex_RejectsConcurrentDoubleBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	repo := repository.NewGormBookingRepository(infra.DB)
	ctx := context.Background()

	clientA := uuid.New()
	clientB := uuid.New()
	technicianID := uuid.New()
	date, err := bookingDomain.ParseDate("2026-10-01")
	require.NoError(t, err)

	address := bookingDomain.Address{Street: "Thamel Marg", City: "Kathmandu"}

	first, err := bookingDomain.NewBooking(clientA, technicianID,
		"electrical", "Client A", "+9779800000010", address, date, "14:00", "16:00", 200000)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	// Same technician, same date, same time: the partial unique index on
	// active statuses must reject the insert regardless of any pre-check.
	second, err := bookingDomain.NewBooking(clientB, technicianID,
		"electrical", "Client B", "+9779800000011", address, date, "14:00", "16:00", 200000)
	require.NoError(t, err)

	err = repo.Save(ctx, second)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err), "expected conflict, got %v", err)

	// Once the first booking leaves an active status the slot frees up.
	loaded, err := repo.FindByID(ctx, first.ID())
	require.NoError(t, err)
	require.NoError(t, loaded.Cancel(clientA, "changed my mind"))
	loaded.IncrementVersion()
	require.NoError(t, repo.Update(ctx, loaded))

	require.NoError(t, repo.Save(ctx, second))
}

// TestBookingLifecycle_EndToEnd drives a booking through the full happy
// path against real Postgres and Kafka, asserting the emitted events.
func TestBookingLifecycle_EndToEnd(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	clientID := uuid.New()
	technicianID := uuid.New()
	seedClient(t, infra.DB, clientID)
	seedTechnician(t, infra.DB, technicianID)

	created, err := stack.Service.CreateBooking(ctx, clientID, application.CreateBookingRequest{
		TechnicianID:     technicianID,
		Service:          "plumbing",
		ContactName:      "Integration Client",
		ContactPhone:     "+9779800000001",
		Address:          bookingDomain.Address{Street: "Lazimpat Road", City: "Kathmandu"},
		ScheduledDate:    "2026-10-05",
		ScheduledTime:    "09:00",
		ScheduledEndTime: "11:00",
		FinalPricePaisa:  175000,
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Status)

	_, err = stack.Service.AcceptBooking(ctx, technicianID, created.ID)
	require.NoError(t, err)
	_, err = stack.Service.StartBooking(ctx, technicianID, created.ID)
	require.NoError(t, err)
	completed, err := stack.Service.CompleteBooking(ctx, technicianID, created.ID, "replaced kitchen tap", nil)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	assert.Len(t, completed.StatusHistory, 4)

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicBookingEvents,
		events.BookingCompleted, 15*time.Second)

	var evt events.BookingStatusEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, created.ID, evt.BookingID)
	assert.Equal(t, technicianID, evt.TechnicianID)
	assert.Equal(t, "completed", evt.Status)
}
