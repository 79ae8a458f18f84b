// Package metrics collects and exposes Prometheus metrics for the
// booking and chat cores.
package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every counter the service records. Label values are
// small closed sets (operation results, close reasons) so cardinality
// stays bounded.
type Collector struct {
    reservations   *prometheus.CounterVec
    cancellations  *prometheus.CounterVec
    sessionsOpened prometheus.Counter
    sessionsClosed *prometheus.CounterVec
    messagesPosted prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
    c := &Collector{
        reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "booking_reservations_total",
            Help: "Slot reservation attempts by result.",
        }, []string{"result"}),
        cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "booking_cancellations_total",
            Help: "Slot cancellation attempts by result.",
        }, []string{"result"}),
        sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "booking_chat_sessions_opened_total",
            Help: "Chat sessions created by the gatekeeper.",
        }),
        sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "booking_chat_sessions_closed_total",
            Help: "Chat sessions torn down by the gatekeeper, by reason.",
        }, []string{"reason"}),
        messagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "booking_chat_messages_total",
            Help: "Messages appended to chat transcripts.",
        }),
    }

    reg.MustRegister(
        c.reservations,
        c.cancellations,
        c.sessionsOpened,
        c.sessionsClosed,
        c.messagesPosted,
    )
    return c
}

// RecordReservation counts one reservation attempt with its result
// ("ok", "already_booked", "insufficient_credits", "error", ...).
func (c *Collector) RecordReservation(result string) {
    c.reservations.WithLabelValues(result).Inc()
}

// RecordCancellation counts one cancellation attempt with its result.
func (c *Collector) RecordCancellation(result string) {
    c.cancellations.WithLabelValues(result).Inc()
}

// RecordSessionOpened counts a chat session created by the gatekeeper.
func (c *Collector) RecordSessionOpened() {
    c.sessionsOpened.Inc()
}

// RecordSessionClosed counts a session teardown with its trigger
// ("leave", "slot_over", "occupant_changed").
func (c *Collector) RecordSessionClosed(reason string) {
    c.sessionsClosed.WithLabelValues(reason).Inc()
}

// RecordMessagePosted counts one appended transcript message.
func (c *Collector) RecordMessagePosted() {
    c.messagesPosted.Inc()
}

// Handler returns the HTTP handler serving the /metrics endpoint for the
// given registry.
func Handler(reg *prometheus.Registry) http.Handler {
    return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
