//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Aalok376/GharBata-sub001/internal/application"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	bookingEvents "github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/kafka"
	"github.com/Aalok376/GharBata-sub001/internal/repository"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Service         *application.BookingService
	Consumer        *bookingEvents.PaymentEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.ClientModel{},
		&repository.TechnicianModel{},
		&repository.BookingModel{},
	))
	// AutoMigrate cannot express the partial unique index that enforces
	// slot uniqueness, so create it the way the real migration does.
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
		ON bookings (technician_id, scheduled_date, scheduled_time)
		WHERE status IN ('pending', 'confirmed', 'in_progress')
	`).Error)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, "booking.events", "payment.events", "identity.events")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires up the full booking service stack.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewGormBookingRepository(db)
	technicianRepo := repository.NewGormTechnicianRepository(db)
	clientRepo := repository.NewGormClientRepository(db)
	producer := kafka.NewProducer(brokers, logger)
	bookingSvc := application.NewBookingService(bookingRepo, technicianRepo, clientRepo, producer, nil, logger)

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewPaymentEventConsumer(brokers, groupID, bookingSvc, logger)

	return &bookingStack{
		Service:         bookingSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedClient inserts a client row so FindByID checks in the service pass.
func seedClient(t *testing.T, db *gorm.DB, id uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&repository.ClientModel{
		ID:        id,
		FullName:  "Integration Client",
		Phone:     "+9779800000001",
		Email:     "client@test.local",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error, "failed to seed client")
}

// seedTechnician inserts an active, unbanned technician row.
func seedTechnician(t *testing.T, db *gorm.DB, id uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&repository.TechnicianModel{
		ID:             id,
		FullName:       "Integration Technician",
		Phone:          "+9779800000002",
		Service:        "plumbing",
		Active:         true,
		IsBanned:       false,
		BanHistory:     json.RawMessage(`[]`),
		WarningHistory: json.RawMessage(`[]`),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error, "failed to seed technician")
}

// seedCancelledBookingAwaitingRefund inserts a booking that was accepted,
// then cancelled by the technician, leaving the client refund-eligible.
func seedCancelledBookingAwaitingRefund(t *testing.T, db *gorm.DB, bookingID, clientID, technicianID uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	confirmedAt := now.Add(-2 * time.Hour)
	cancelledAt := now.Add(-10 * time.Minute)
	scheduledDate, _ := bookingDomain.ParseDate("2026-09-20")

	address, _ := json.Marshal(bookingDomain.Address{
		Street:    "Lazimpat Road",
		City:      "Kathmandu",
		Latitude:  27.7215,
		Longitude: 85.3205,
	})
	history, _ := json.Marshal([]bookingDomain.StatusHistoryEntry{
		{Status: bookingDomain.StatusPending, ChangedBy: clientID, ChangedAt: now.Add(-3 * time.Hour)},
		{Status: bookingDomain.StatusConfirmed, ChangedBy: technicianID, ChangedAt: confirmedAt},
		{Status: bookingDomain.StatusCancelled, ChangedBy: technicianID, ChangedAt: cancelledAt, Reason: "technician unavailable"},
	})

	model := repository.BookingModel{
		ID:                 bookingID,
		ClientID:           clientID,
		TechnicianID:       technicianID,
		Service:            "plumbing",
		ContactName:        "Integration Client",
		ContactPhone:       "+9779800000001",
		Address:            address,
		ScheduledDate:      scheduledDate,
		ScheduledTime:      "10:00",
		ScheduledEndTime:   "12:00",
		FinalPricePaisa:    150000,
		Currency:           "NPR",
		Status:             "cancelled",
		PreviousStatus:     "confirmed",
		StatusHistory:      history,
		CancelledAt:        &cancelledAt,
		CancelledBy:        &technicianID,
		CancellationReason: "technician unavailable",
		ConfirmedAt:        &confirmedAt,
		Issues:             json.RawMessage(`[]`),
		RescheduleHistory:  json.RawMessage(`[]`),
		RefundStatus:       "eligible",
		Version:            3,
		CreatedAt:          now.Add(-3 * time.Hour),
		UpdatedAt:          cancelledAt,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed booking")
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType, key string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForRefundStatus polls the bookings table until the refund status matches.
func waitForRefundStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expected string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.RefundStatus == expected {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking refund status did not become %s", expected)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
