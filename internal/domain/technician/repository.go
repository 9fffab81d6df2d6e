package technician

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for technician profiles.
type Repository interface {
	// FindByID retrieves a technician by their identity-service id.
	FindByID(ctx context.Context, id uuid.UUID) (*Technician, error)

	// FindBanned retrieves currently banned technicians with pagination.
	FindBanned(ctx context.Context, page, limit int) ([]*Technician, int64, error)

	// FindExpiredBans retrieves technicians whose temporary ban end date has
	// passed as of now.
	FindExpiredBans(ctx context.Context, now time.Time) ([]*Technician, error)

	// Save persists a new technician profile.
	Save(ctx context.Context, technician *Technician) error

	// Update persists changes with optimistic locking.
	Update(ctx context.Context, technician *Technician) error
}
