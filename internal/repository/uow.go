package repository

import (
	"context"

	"gorm.io/gorm"

	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
)

// GormUnitOfWork runs repository operations inside a single database
// transaction. The repositories handed to fn are bound to that transaction,
// so either all writes commit or none do.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// InTransaction executes fn within a transaction, giving it transaction-bound
// booking and technician repositories.
func (u *GormUnitOfWork) InTransaction(
	ctx context.Context,
	fn func(bookings bookingDomain.Repository, technicians technicianDomain.Repository) error,
) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormBookingRepository(tx), NewGormTechnicianRepository(tx))
	})
}
