package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/domain"
	clientDomain "github.com/Aalok376/GharBata-sub001/internal/domain/client"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
)

// RegistryService maintains the local client and technician profile
// projections driven by identity-service events.
type RegistryService struct {
	clients     clientDomain.Repository
	technicians technicianDomain.Repository
	logger      *zap.Logger
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(
	clients clientDomain.Repository,
	technicians technicianDomain.Repository,
	logger *zap.Logger,
) *RegistryService {
	return &RegistryService{
		clients:     clients,
		technicians: technicians,
		logger:      logger,
	}
}

// RegisterClient creates the local client projection. Replayed
// registration events are idempotent.
func (s *RegistryService) RegisterClient(ctx context.Context, id uuid.UUID, fullName, phone, email string) error {
	if _, err := s.clients.FindByID(ctx, id); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}

	c, err := clientDomain.NewClient(id, fullName, phone, email)
	if err != nil {
		return err
	}
	return s.clients.Save(ctx, c)
}

// RegisterTechnician creates the local technician projection. Replayed
// registration events are idempotent.
func (s *RegistryService) RegisterTechnician(ctx context.Context, id uuid.UUID, fullName, phone, service string) error {
	if _, err := s.technicians.FindByID(ctx, id); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}

	t, err := technicianDomain.NewTechnician(id, fullName, phone, service)
	if err != nil {
		return err
	}
	return s.technicians.Save(ctx, t)
}

// DeactivateUser marks the local projection inactive.
func (s *RegistryService) DeactivateUser(ctx context.Context, id uuid.UUID, role string) error {
	switch role {
	case auth.RoleClient:
		c, err := s.clients.FindByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		c.Deactivate()
		return s.clients.Update(ctx, c)
	case auth.RoleTechnician:
		t, err := s.technicians.FindByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		t.Deactivate()
		t.IncrementVersion()
		return s.technicians.Update(ctx, t)
	default:
		s.logger.Debug("ignoring deactivation for role", zap.String("role", role))
		return nil
	}
}
