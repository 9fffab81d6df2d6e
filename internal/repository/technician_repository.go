package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
	technicianDomain "github.com/Aalok376/GharBata-sub001/internal/domain/technician"
)

// TechnicianModel is the GORM model for the technicians table.
type TechnicianModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FullName       string          `gorm:"not null;size:100"`
	Phone          string          `gorm:"size:20"`
	Service        string          `gorm:"size:100"`
	Active         bool            `gorm:"not null;default:true"`
	IsBanned       bool            `gorm:"not null;default:false;index"`
	BanReason      string          `gorm:"size:500"`
	BannedAt       *time.Time      `gorm:""`
	BannedBy       *uuid.UUID      `gorm:"type:uuid"`
	BanEndDate     *time.Time      `gorm:"index"`
	BanSeverity    string          `gorm:"size:20"`
	BanHistory     json.RawMessage `gorm:"type:jsonb"`
	WarningHistory json.RawMessage `gorm:"type:jsonb"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TechnicianModel) TableName() string {
	return "technicians"
}

// GormTechnicianRepository is the GORM-based implementation of the
// technician repository.
type GormTechnicianRepository struct {
	db *gorm.DB
}

// NewGormTechnicianRepository creates a new GormTechnicianRepository.
func NewGormTechnicianRepository(db *gorm.DB) *GormTechnicianRepository {
	return &GormTechnicianRepository{db: db}
}

// FindByID retrieves a technician by their identity-service id.
func (r *GormTechnicianRepository) FindByID(ctx context.Context, id uuid.UUID) (*technicianDomain.Technician, error) {
	var model TechnicianModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Technician", id.String())
		}
		return nil, fmt.Errorf("failed to find technician by ID: %w", err)
	}
	return toDomainTechnician(&model)
}

// FindBanned retrieves currently banned technicians with pagination.
func (r *GormTechnicianRepository) FindBanned(ctx context.Context, page, limit int) ([]*technicianDomain.Technician, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TechnicianModel{}).Where("is_banned = ?", true).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count banned technicians: %w", err)
	}

	var models []TechnicianModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("is_banned = ?", true).
		Order("banned_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find banned technicians: %w", err)
	}

	technicians := make([]*technicianDomain.Technician, len(models))
	for i, m := range models {
		t, err := toDomainTechnician(&m)
		if err != nil {
			return nil, 0, err
		}
		technicians[i] = t
	}
	return technicians, total, nil
}

// FindExpiredBans retrieves technicians whose temporary ban end date has
// passed as of now.
func (r *GormTechnicianRepository) FindExpiredBans(ctx context.Context, now time.Time) ([]*technicianDomain.Technician, error) {
	var models []TechnicianModel
	if err := r.db.WithContext(ctx).
		Where("is_banned = ?", true).
		Where("ban_severity = ?", string(technicianDomain.BanTemporary)).
		Where("ban_end_date IS NOT NULL AND ban_end_date <= ?", now).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired bans: %w", err)
	}

	technicians := make([]*technicianDomain.Technician, len(models))
	for i, m := range models {
		t, err := toDomainTechnician(&m)
		if err != nil {
			return nil, err
		}
		technicians[i] = t
	}
	return technicians, nil
}

// Save persists a new technician profile.
func (r *GormTechnicianRepository) Save(ctx context.Context, t *technicianDomain.Technician) error {
	model, err := toTechnicianModel(t)
	if err != nil {
		return fmt.Errorf("failed to convert technician to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save technician: %w", err)
	}
	return nil
}

// Update persists changes to an existing technician with optimistic locking.
func (r *GormTechnicianRepository) Update(ctx context.Context, t *technicianDomain.Technician) error {
	model, err := toTechnicianModel(t)
	if err != nil {
		return fmt.Errorf("failed to convert technician to model: %w", err)
	}

	expectedVersion := t.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&TechnicianModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"full_name":       model.FullName,
			"phone":           model.Phone,
			"service":         model.Service,
			"active":          model.Active,
			"is_banned":       model.IsBanned,
			"ban_reason":      model.BanReason,
			"banned_at":       model.BannedAt,
			"banned_by":       model.BannedBy,
			"ban_end_date":    model.BanEndDate,
			"ban_severity":    model.BanSeverity,
			"ban_history":     model.BanHistory,
			"warning_history": model.WarningHistory,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update technician: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("technician was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toTechnicianModel(t *technicianDomain.Technician) (*TechnicianModel, error) {
	s := t.ToSnapshot()

	banHistoryJSON, err := json.Marshal(s.BanHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ban history: %w", err)
	}
	warningsJSON, err := json.Marshal(s.WarningHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal warning history: %w", err)
	}

	return &TechnicianModel{
		ID:             s.ID,
		FullName:       s.FullName,
		Phone:          s.Phone,
		Service:        s.Service,
		Active:         s.Active,
		IsBanned:       s.IsBanned,
		BanReason:      s.BanReason,
		BannedAt:       s.BannedAt,
		BannedBy:       s.BannedBy,
		BanEndDate:     s.BanEndDate,
		BanSeverity:    string(s.BanSeverity),
		BanHistory:     banHistoryJSON,
		WarningHistory: warningsJSON,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func toDomainTechnician(m *TechnicianModel) (*technicianDomain.Technician, error) {
	var banHistory []technicianDomain.BanRecord
	if len(m.BanHistory) > 0 {
		if err := json.Unmarshal(m.BanHistory, &banHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ban history: %w", err)
		}
	}

	var warnings []technicianDomain.WarningRecord
	if len(m.WarningHistory) > 0 {
		if err := json.Unmarshal(m.WarningHistory, &warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warning history: %w", err)
		}
	}

	return technicianDomain.Reconstruct(technicianDomain.Snapshot{
		ID:             m.ID,
		FullName:       m.FullName,
		Phone:          m.Phone,
		Service:        m.Service,
		Active:         m.Active,
		IsBanned:       m.IsBanned,
		BanReason:      m.BanReason,
		BannedAt:       m.BannedAt,
		BannedBy:       m.BannedBy,
		BanEndDate:     m.BanEndDate,
		BanSeverity:    technicianDomain.BanSeverity(m.BanSeverity),
		BanHistory:     banHistory,
		WarningHistory: warnings,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}), nil
}
