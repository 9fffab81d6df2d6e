package booking

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistoryEntry is one record in the append-only status audit log.
type StatusHistoryEntry struct {
	Status    BookingStatus `json:"status"`
	ChangedBy uuid.UUID     `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
	Reason    string        `json:"reason,omitempty"`
}

// RescheduleEntry records one reschedule of a booking for auditing.
type RescheduleEntry struct {
	OldDate       string    `json:"old_date"`
	OldTime       string    `json:"old_time"`
	NewDate       string    `json:"new_date"`
	NewTime       string    `json:"new_time"`
	RescheduledBy uuid.UUID `json:"rescheduled_by"`
	RescheduledAt time.Time `json:"rescheduled_at"`
	Reason        string    `json:"reason,omitempty"`
}
