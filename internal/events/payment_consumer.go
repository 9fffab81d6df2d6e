package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/kafka"
)

// RefundRecorder is the slice of the booking service this consumer needs.
type RefundRecorder interface {
	RecordRefund(ctx context.Context, bookingID uuid.UUID, reference string) error
}

// PaymentEventConsumer listens to payment events and marks refunds as
// processed on the affected bookings.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	recorder RefundRecorder
	logger   *zap.Logger
}

func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	recorder RefundRecorder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins consuming payment events. Blocks until the context is
// cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentRefundProcessed:
		return c.handleRefundProcessed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleRefundProcessed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt RefundProcessedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RefundProcessedEvent data", zap.Error(err))
		return nil
	}

	c.logger.Info("processing refund event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("reference", evt.Reference),
	)

	if err := c.recorder.RecordRefund(ctx, evt.BookingID, evt.Reference); err != nil {
		c.logger.Error("failed to record refund",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
