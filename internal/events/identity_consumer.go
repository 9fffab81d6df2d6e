package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/kafka"
)

// PartyRegistry is the slice of the registry service this consumer needs.
type PartyRegistry interface {
	RegisterClient(ctx context.Context, id uuid.UUID, fullName, phone, email string) error
	RegisterTechnician(ctx context.Context, id uuid.UUID, fullName, phone, service string) error
	DeactivateUser(ctx context.Context, id uuid.UUID, role string) error
}

// IdentityEventConsumer mirrors identity-service users into the local
// client and technician tables.
type IdentityEventConsumer struct {
	consumer *kafka.Consumer
	registry PartyRegistry
	logger   *zap.Logger
}

func NewIdentityEventConsumer(
	brokers []string,
	groupID string,
	registry PartyRegistry,
	logger *zap.Logger,
) *IdentityEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicIdentityEvents, logger)
	return &IdentityEventConsumer{
		consumer: consumer,
		registry: registry,
		logger:   logger,
	}
}

// Start begins consuming identity events. Blocks until the context is
// cancelled.
func (c *IdentityEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *IdentityEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *IdentityEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from identity topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // don't retry malformed messages
	}

	switch cloudEvent.Type {
	case UserRegistered:
		return c.handleUserRegistered(ctx, cloudEvent)
	case UserDeactivated:
		return c.handleUserDeactivated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled identity event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *IdentityEventConsumer) handleUserRegistered(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt UserRegisteredEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse UserRegisteredEvent data", zap.Error(err))
		return nil
	}

	var err error
	switch evt.Role {
	case auth.RoleClient:
		err = c.registry.RegisterClient(ctx, evt.UserID, evt.FullName, evt.Phone, evt.Email)
	case auth.RoleTechnician:
		err = c.registry.RegisterTechnician(ctx, evt.UserID, evt.FullName, evt.Phone, evt.Service)
	default:
		c.logger.Debug("ignoring registration for role", zap.String("role", evt.Role))
		return nil
	}
	if err != nil {
		c.logger.Error("failed to register user",
			zap.String("user_id", evt.UserID.String()),
			zap.String("role", evt.Role),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("user registered locally",
		zap.String("user_id", evt.UserID.String()),
		zap.String("role", evt.Role),
	)
	return nil
}

func (c *IdentityEventConsumer) handleUserDeactivated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt UserDeactivatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse UserDeactivatedEvent data", zap.Error(err))
		return nil
	}

	if err := c.registry.DeactivateUser(ctx, evt.UserID, evt.Role); err != nil {
		c.logger.Error("failed to deactivate user",
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
