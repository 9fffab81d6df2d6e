package technician

import (
	"time"

	"github.com/google/uuid"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

// BanSeverity distinguishes permanent from time-bounded bans.
type BanSeverity string

const (
	BanPermanent BanSeverity = "permanent"
	BanTemporary BanSeverity = "temporary"
)

// IsValid returns true if the severity is recognized.
func (s BanSeverity) IsValid() bool {
	return s == BanPermanent || s == BanTemporary
}

// BanRecord is one entry in a technician's ban history.
type BanRecord struct {
	Reason     string      `json:"reason"`
	Severity   BanSeverity `json:"severity"`
	BannedBy   uuid.UUID   `json:"banned_by"`
	BannedAt   time.Time   `json:"banned_at"`
	BanEndDate *time.Time  `json:"ban_end_date,omitempty"`
	LiftedAt   *time.Time  `json:"lifted_at,omitempty"`
	LiftedBy   *uuid.UUID  `json:"lifted_by,omitempty"`
	LiftReason string      `json:"lift_reason,omitempty"`
}

// WarningRecord is one entry in a technician's warning history.
type WarningRecord struct {
	Reason   string    `json:"reason"`
	IssuedBy uuid.UUID `json:"issued_by"`
	IssuedAt time.Time `json:"issued_at"`
}

// Technician is the service-provider profile this service keeps about a
// party managed by the external identity service. It owns the ban and
// warning administrative state.
type Technician struct {
	id       uuid.UUID
	fullName string
	phone    string
	service  string
	active   bool

	isBanned    bool
	banReason   string
	bannedAt    *time.Time
	bannedBy    *uuid.UUID
	banEndDate  *time.Time
	banSeverity BanSeverity

	banHistory     []BanRecord
	warningHistory []WarningRecord

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewTechnician creates a technician profile for an identity-service party.
// The id comes from the identity service, not generated here.
func NewTechnician(id uuid.UUID, fullName, phone, service string) (*Technician, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("technician ID is required")
	}
	if fullName == "" {
		return nil, domain.NewValidationError("technician name is required")
	}
	now := time.Now().UTC()
	return &Technician{
		id:        id,
		fullName:  fullName,
		phone:     phone,
		service:   service,
		active:    true,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Snapshot is the persistence representation of a Technician's full state.
type Snapshot struct {
	ID             uuid.UUID
	FullName       string
	Phone          string
	Service        string
	Active         bool
	IsBanned       bool
	BanReason      string
	BannedAt       *time.Time
	BannedBy       *uuid.UUID
	BanEndDate     *time.Time
	BanSeverity    BanSeverity
	BanHistory     []BanRecord
	WarningHistory []WarningRecord
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reconstruct rebuilds a Technician from persistence data (no validation).
func Reconstruct(s Snapshot) *Technician {
	return &Technician{
		id:             s.ID,
		fullName:       s.FullName,
		phone:          s.Phone,
		service:        s.Service,
		active:         s.Active,
		isBanned:       s.IsBanned,
		banReason:      s.BanReason,
		bannedAt:       s.BannedAt,
		bannedBy:       s.BannedBy,
		banEndDate:     s.BanEndDate,
		banSeverity:    s.BanSeverity,
		banHistory:     s.BanHistory,
		warningHistory: s.WarningHistory,
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
}

// ToSnapshot exports the technician's full state for persistence.
func (t *Technician) ToSnapshot() Snapshot {
	return Snapshot{
		ID:             t.id,
		FullName:       t.fullName,
		Phone:          t.phone,
		Service:        t.service,
		Active:         t.active,
		IsBanned:       t.isBanned,
		BanReason:      t.banReason,
		BannedAt:       t.bannedAt,
		BannedBy:       t.bannedBy,
		BanEndDate:     t.banEndDate,
		BanSeverity:    t.banSeverity,
		BanHistory:     t.banHistory,
		WarningHistory: t.warningHistory,
		Version:        t.version,
		CreatedAt:      t.createdAt,
		UpdatedAt:      t.updatedAt,
	}
}

// --- Getters ---

func (t *Technician) ID() uuid.UUID            { return t.id }
func (t *Technician) FullName() string         { return t.fullName }
func (t *Technician) Phone() string            { return t.phone }
func (t *Technician) Service() string          { return t.service }
func (t *Technician) Active() bool             { return t.active }
func (t *Technician) IsBanned() bool           { return t.isBanned }
func (t *Technician) BanReason() string        { return t.banReason }
func (t *Technician) BannedAt() *time.Time     { return t.bannedAt }
func (t *Technician) BannedBy() *uuid.UUID     { return t.bannedBy }
func (t *Technician) BanEndDate() *time.Time   { return t.banEndDate }
func (t *Technician) BanSeverity() BanSeverity { return t.banSeverity }
func (t *Technician) Version() int64           { return t.version }
func (t *Technician) CreatedAt() time.Time     { return t.createdAt }
func (t *Technician) UpdatedAt() time.Time     { return t.updatedAt }

// BanHistory returns a copy of the ban history.
func (t *Technician) BanHistory() []BanRecord {
	out := make([]BanRecord, len(t.banHistory))
	copy(out, t.banHistory)
	return out
}

// WarningHistory returns a copy of the warning history.
func (t *Technician) WarningHistory() []WarningRecord {
	out := make([]WarningRecord, len(t.warningHistory))
	copy(out, t.warningHistory)
	return out
}

// --- Behavior ---

// Ban suspends the technician. Temporary bans require a positive duration in
// days; the end date is computed from now.
func (t *Technician) Ban(reason string, severity BanSeverity, bannedBy uuid.UUID, durationDays int) error {
	if reason == "" {
		return domain.NewValidationError("ban reason is required")
	}
	if t.isBanned {
		return domain.NewConflictError("technician is already banned")
	}
	if !severity.IsValid() {
		return domain.NewValidationError("ban severity must be permanent or temporary")
	}
	if severity == BanTemporary && durationDays <= 0 {
		return domain.NewValidationError("temporary bans require a positive duration in days")
	}

	now := time.Now().UTC()
	t.isBanned = true
	t.banReason = reason
	t.bannedAt = &now
	t.bannedBy = &bannedBy
	t.banSeverity = severity
	t.banEndDate = nil
	if severity == BanTemporary {
		end := now.AddDate(0, 0, durationDays)
		t.banEndDate = &end
	}
	t.banHistory = append(t.banHistory, BanRecord{
		Reason:     reason,
		Severity:   severity,
		BannedBy:   bannedBy,
		BannedAt:   now,
		BanEndDate: t.banEndDate,
	})
	t.updatedAt = now
	return nil
}

// Unban lifts the current ban and closes the latest ban-history record.
func (t *Technician) Unban(liftedBy uuid.UUID, reason string) error {
	if !t.isBanned {
		return domain.NewConflictError("technician is not banned")
	}
	now := time.Now().UTC()
	t.isBanned = false
	t.banReason = ""
	t.bannedAt = nil
	t.bannedBy = nil
	t.banEndDate = nil
	t.banSeverity = ""
	if n := len(t.banHistory); n > 0 {
		t.banHistory[n-1].LiftedAt = &now
		t.banHistory[n-1].LiftedBy = &liftedBy
		t.banHistory[n-1].LiftReason = reason
	}
	t.updatedAt = now
	return nil
}

// Warn records a formal warning against the technician.
func (t *Technician) Warn(reason string, issuedBy uuid.UUID) error {
	if reason == "" {
		return domain.NewValidationError("warning reason is required")
	}
	now := time.Now().UTC()
	t.warningHistory = append(t.warningHistory, WarningRecord{
		Reason:   reason,
		IssuedBy: issuedBy,
		IssuedAt: now,
	})
	t.updatedAt = now
	return nil
}

// BanExpired reports whether a temporary ban has run out as of now.
func (t *Technician) BanExpired(now time.Time) bool {
	return t.isBanned && t.banSeverity == BanTemporary &&
		t.banEndDate != nil && t.banEndDate.Before(now)
}

// Deactivate marks the profile inactive (identity service removed the user).
func (t *Technician) Deactivate() {
	t.active = false
	t.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (t *Technician) IncrementVersion() {
	t.version++
	t.updatedAt = time.Now().UTC()
}
