// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BookingsCreated counts bookings accepted into the system.
	BookingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gharbata_bookings_created_total",
		Help: "Total number of bookings created.",
	})

	// BookingTransitions counts state transitions by target status.
	BookingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gharbata_booking_transitions_total",
		Help: "Total number of booking status transitions.",
	}, []string{"status"})

	// SlotConflicts counts booking attempts rejected because the slot was
	// already taken.
	SlotConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gharbata_slot_conflicts_total",
		Help: "Total number of booking attempts rejected for slot conflicts.",
	})

	// IssuesReported counts client issue reports by severity.
	IssuesReported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gharbata_issues_reported_total",
		Help: "Total number of issues reported against technicians.",
	}, []string{"severity"})

	// TechniciansBanned counts ban actions by severity.
	TechniciansBanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gharbata_technicians_banned_total",
		Help: "Total number of technician bans.",
	}, []string{"severity"})
)

var registerOnce sync.Once

// Register installs all collectors into the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BookingsCreated,
			BookingTransitions,
			SlotConflicts,
			IssuesReported,
			TechniciansBanned,
		)
	})
}
