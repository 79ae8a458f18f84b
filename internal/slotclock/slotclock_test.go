package slotclock

import (
    "testing"
    "time"
)

// date builds a local time on a fixed week: 2026-08-31 is a Monday.
func date(t *testing.T, dayOffset, hour, min int) time.Time {
    t.Helper()
    return time.Date(2026, time.August, 31+dayOffset, hour, min, 0, 0, time.Local)
}

func TestAt_MapsWorkingHours(t *testing.T) {
    cases := []struct {
        name   string
        at     time.Time
        day    int
        hour   int
        active bool
    }{
        {"first morning hour", date(t, 0, 8, 0), 1, 1, true},
        {"last morning hour", date(t, 0, 11, 59), 1, 4, true},
        {"first afternoon hour", date(t, 1, 13, 0), 1, 5, true},
        {"last afternoon hour", date(t, 2, 16, 59), 1, 8, true},
        {"lunch break has no slot", date(t, 0, 12, 30), 0, 0, false},
        {"before opening", date(t, 1, 7, 59), 0, 0, false},
        {"after closing", date(t, 2, 17, 0), 0, 0, false},
        {"midnight has no slot", date(t, 3, 0, 0), 0, 0, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            slot, ok := At(tc.at)
            if ok != tc.active {
                t.Fatalf("At(%v) active = %v, want %v", tc.at, ok, tc.active)
            }
            if !tc.active {
                return
            }
            if slot.Day != tc.day || slot.Hour != tc.hour {
                t.Errorf("At(%v) = (%d,%d), want (%d,%d)", tc.at, slot.Day, slot.Hour, tc.day, tc.hour)
            }
            if !slot.Valid() {
                t.Errorf("active slot (%d,%d) reported invalid", slot.Day, slot.Hour)
            }
        })
    }
}

// The grid shifts forward at every midnight, so whatever the date, the
// day in session is day 1. A booking made yesterday for (2, h) sits at
// (1, h) today; if the clock reported anything but day 1 the entry check
// would look at the wrong cell and turn away the booking user.
func TestAt_CurrentDayIsAlwaysFirst(t *testing.T) {
    for offset := 0; offset < 7; offset++ {
        slot, ok := At(date(t, offset, 9, 0))
        if !ok {
            t.Fatalf("day offset %d: no active slot at 09:00", offset)
        }
        if slot.Day != 1 {
            t.Fatalf("day offset %d: day = %d, want 1 (today)", offset, slot.Day)
        }
    }
}

// Every active mapping must land inside the grid; sweep a full week to
// make sure no instant escapes the 3×8 coordinate space.
func TestAt_TotalOverFullWeek(t *testing.T) {
    for d := 0; d < 7; d++ {
        for h := 0; h < 24; h++ {
            slot, ok := At(date(t, d, h, 15))
            if !ok {
                continue
            }
            if !slot.Valid() {
                t.Fatalf("day offset %d hour %d mapped to out-of-grid slot (%d,%d)", d, h, slot.Day, slot.Hour)
            }
        }
    }
}
