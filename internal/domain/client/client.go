package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

// Client is the service-requesting party profile this service keeps about a
// user managed by the external identity service.
type Client struct {
	id        uuid.UUID
	fullName  string
	phone     string
	email     string
	active    bool
	createdAt time.Time
	updatedAt time.Time
}

// NewClient creates a client profile for an identity-service party.
func NewClient(id uuid.UUID, fullName, phone, email string) (*Client, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("client ID is required")
	}
	if fullName == "" {
		return nil, domain.NewValidationError("client name is required")
	}
	now := time.Now().UTC()
	return &Client{
		id:        id,
		fullName:  fullName,
		phone:     phone,
		email:     email,
		active:    true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Client from persistence data (no validation).
func Reconstruct(id uuid.UUID, fullName, phone, email string, active bool, createdAt, updatedAt time.Time) *Client {
	return &Client{
		id:        id,
		fullName:  fullName,
		phone:     phone,
		email:     email,
		active:    active,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (c *Client) ID() uuid.UUID        { return c.id }
func (c *Client) FullName() string     { return c.fullName }
func (c *Client) Phone() string        { return c.phone }
func (c *Client) Email() string        { return c.email }
func (c *Client) Active() bool         { return c.active }
func (c *Client) CreatedAt() time.Time { return c.createdAt }
func (c *Client) UpdatedAt() time.Time { return c.updatedAt }

// Deactivate marks the profile inactive.
func (c *Client) Deactivate() {
	c.active = false
	c.updatedAt = time.Now().UTC()
}

// Repository defines the persistence contract for client profiles.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Save(ctx context.Context, client *Client) error
	Update(ctx context.Context, client *Client) error
}
