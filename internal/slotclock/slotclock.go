// Package slotclock maps wall-clock time onto the timetable grid.
package slotclock

import (
    "time"

    "github.com/iliyamo/consultation-booking/internal/model"
)

// Slot is one (day, hour) coordinate of the 3×8 booking grid.
type Slot struct {
    Day  int `json:"day"`
    Hour int `json:"hour"`
}

// At maps the given instant to the grid coordinate currently in session.
// The timetable is a rolling window that shifts forward at every
// midnight, so the day in session is always day 1, "today"; a booking
// made for day 2 has moved into day 1 by the time its date arrives.
// Only the hour varies:
//
//	08:00-11:59 local time -> hour 1..4 (morning block)
//	13:00-16:59 local time -> hour 5..8 (afternoon block, after lunch)
//
// Every other instant has no active slot, which is a normal result rather
// than a failure: consultations simply are not held then.
func At(t time.Time) (Slot, bool) {
    h := t.Hour()
    var hour int
    switch {
    case h >= 8 && h <= 11:
        hour = h - 7
    case h >= 13 && h <= 16:
        hour = h - 8
    default:
        return Slot{}, false
    }
    return Slot{Day: 1, Hour: hour}, true
}

// Now maps the current local time.  Everything except this convenience
// wrapper is deterministic; tests and the gatekeeper pass explicit times
// to At instead.
func Now() (Slot, bool) {
    return At(time.Now())
}

// Valid reports whether the slot addresses a real grid cell.
func (s Slot) Valid() bool {
    return model.ValidSlot(s.Day, s.Hour)
}
