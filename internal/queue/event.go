// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published to the booking.events queue.
const (
    KindSlotReserved  = "slot.reserved"
    KindSlotCancelled = "slot.cancelled"
    KindSessionClosed = "session.closed"
)

// BookingEvent is the envelope for every domain event the service emits.
// It carries enough information for downstream consumers to log, notify
// or feed analytics without querying the primary database. Fields that
// do not apply to a kind are left at their zero value and omitted from
// the JSON encoding.
type BookingEvent struct {
    Kind         string `json:"kind"`
    ConsultantID uint64 `json:"consultant_id"`
    UserID       uint64 `json:"user_id"`
    Day          int    `json:"day,omitempty"`
    Hour         int    `json:"hour,omitempty"`
    PriceCredits int64  `json:"price_credits,omitempty"`
    Reason       string `json:"reason,omitempty"`
    OccurredAt   string `json:"occurred_at"`
}
