package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
	clientDomain "github.com/Aalok376/GharBata-sub001/internal/domain/client"
)

// ClientModel is the GORM model for the clients table.
type ClientModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string    `gorm:"not null;size:100"`
	Phone     string    `gorm:"size:20"`
	Email     string    `gorm:"size:255"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ClientModel) TableName() string {
	return "clients"
}

// GormClientRepository is the GORM-based implementation of the client
// repository.
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository.
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID retrieves a client by their identity-service id.
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*clientDomain.Client, error) {
	var model ClientModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Client", id.String())
		}
		return nil, fmt.Errorf("failed to find client by ID: %w", err)
	}
	return clientDomain.Reconstruct(model.ID, model.FullName, model.Phone, model.Email, model.Active, model.CreatedAt, model.UpdatedAt), nil
}

// Save persists a new client profile.
func (r *GormClientRepository) Save(ctx context.Context, c *clientDomain.Client) error {
	model := &ClientModel{
		ID:        c.ID(),
		FullName:  c.FullName(),
		Phone:     c.Phone(),
		Email:     c.Email(),
		Active:    c.Active(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// Update persists changes to an existing client profile.
func (r *GormClientRepository) Update(ctx context.Context, c *clientDomain.Client) error {
	result := r.db.WithContext(ctx).
		Model(&ClientModel{}).
		Where("id = ?", c.ID()).
		Updates(map[string]interface{}{
			"full_name":  c.FullName(),
			"phone":      c.Phone(),
			"email":      c.Email(),
			"active":     c.Active(),
			"updated_at": c.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Client", c.ID().String())
	}
	return nil
}
