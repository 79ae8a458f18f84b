package queue

import (
    "strings"
    "testing"
)

func TestFormatLineReservation(t *testing.T) {
    line := FormatLine(BookingEvent{
        Kind:         KindSlotReserved,
        ConsultantID: 20,
        UserID:       10,
        Day:          2,
        Hour:         5,
        PriceCredits: 50,
        OccurredAt:   "2026-01-05T09:00:00Z",
    })
    want := "[2026-01-05T09:00:00Z] slot.reserved | consultant_id=20 | user_id=10 | slot=(2,5) | price=50 credits\n"
    if line != want {
        t.Fatalf("FormatLine = %q, want %q", line, want)
    }
}

func TestFormatLineSessionClosed(t *testing.T) {
    line := FormatLine(BookingEvent{
        Kind:         KindSessionClosed,
        ConsultantID: 20,
        UserID:       10,
        Reason:       "slot_over",
        OccurredAt:   "2026-01-05T12:00:00Z",
    })
    if !strings.Contains(line, "reason=slot_over") {
        t.Fatalf("line %q is missing the close reason", line)
    }
    if !strings.HasSuffix(line, "\n") {
        t.Fatalf("line %q is not newline-terminated", line)
    }
}

func TestFormatLineUnknownKind(t *testing.T) {
    line := FormatLine(BookingEvent{Kind: "something.else", ConsultantID: 1, UserID: 2})
    if !strings.Contains(line, "something.else") {
        t.Fatalf("line %q dropped the kind", line)
    }
}
