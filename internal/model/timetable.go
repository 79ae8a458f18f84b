package model

// Timetable grid dimensions.  Every consultant owns exactly Days×Hours
// slot cells; the pair (day ∈ 1..Days, hour ∈ 1..Hours) indexes one cell.
// The window rolls forward once per day, so day 1 is always "today".
const (
    TimetableDays  = 3
    TimetableHours = 8
)

// ValidSlot reports whether (day, hour) addresses a cell inside the grid.
func ValidSlot(day, hour int) bool {
    return day >= 1 && day <= TimetableDays && hour >= 1 && hour <= TimetableHours
}

// TimetableGrid is the full 3×8 occupancy view for one consultant,
// indexed as [day-1][hour-1].  A nil entry means the cell is free.
type TimetableGrid [TimetableDays][TimetableHours]*uint64
