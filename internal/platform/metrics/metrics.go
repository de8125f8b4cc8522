// Package metrics holds the admin-plane Prometheus metrics. Scan-plane
// metrics live with the check-in pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the administrative counters.
type Metrics struct {
	UsersCreated         prometheus.Counter
	EventsCreated        prometheus.Counter
	ParticipantsImported prometheus.Counter
}

// New creates and registers all admin metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acredita_users_created_total",
			Help: "Total number of operator accounts created",
		}),
		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acredita_events_created_total",
			Help: "Total number of events created",
		}),
		ParticipantsImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acredita_participants_imported_total",
			Help: "Total number of participants imported from CSV",
		}),
	}
}

// IncrementUsersCreated increments the users created counter by 1.
// Nil-safe so services can run without metrics in tests.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// IncrementEventsCreated increments the events created counter by 1.
func (m *Metrics) IncrementEventsCreated() {
	if m == nil {
		return
	}
	m.EventsCreated.Inc()
}

// AddParticipantsImported adds the batch size to the import counter.
func (m *Metrics) AddParticipantsImported(n int) {
	if m == nil {
		return
	}
	m.ParticipantsImported.Add(float64(n))
}
