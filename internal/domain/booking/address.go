package booking

import (
	"regexp"
	"strings"
	"time"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

// DateLayout is the wire format for scheduled dates.
const DateLayout = "2006-01-02"

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeOfDay reports whether s is a local time-of-day in HH:MM form.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// ParseDate parses a scheduled date and normalizes it to midnight UTC.
// Malformed input surfaces as a validation error.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("scheduled date must be in YYYY-MM-DD format")
	}
	return t, nil
}

// Address is the service location captured at booking time.
type Address struct {
	Street    string  `json:"street"`
	Apartment string  `json:"apartment,omitempty"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Full renders the address as a single display line.
func (a Address) Full() string {
	parts := make([]string, 0, 3)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if a.Apartment != "" {
		parts = append(parts, a.Apartment)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	return strings.Join(parts, ", ")
}
