package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/consultation-booking/internal/model"
)

// TimetableRepo encapsulates database operations for timetable_slots.
// Each consultant owns exactly 24 rows (3 days × 8 hours), created when
// the consultant registers, so a reservation never inserts: it locks the
// existing cell row with SELECT ... FOR UPDATE and flips its occupant.
// The ...Tx methods run inside a caller-owned transaction; the caller is
// responsible for committing or rolling back.
type TimetableRepo struct {
    db *sql.DB
}

func NewTimetableRepo(db *sql.DB) *TimetableRepo { return &TimetableRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// spanning the timetable and the credit ledger.
func (r *TimetableRepo) DB() *sql.DB { return r.db }

// ErrConsultantNotFound is returned when the addressed grid cell does not
// exist, i.e. the consultant id is unknown.
var ErrConsultantNotFound = errors.New("consultant not found")

// OccupantForUpdateTx reads a cell's occupant and takes an exclusive row
// lock on it for the remainder of the transaction. Concurrent reserve or
// release attempts on the same cell serialize behind this lock, which is
// what makes the read-check-write sequence of a reservation atomic.
func (r *TimetableRepo) OccupantForUpdateTx(ctx context.Context, tx *sql.Tx, consultantID uint64, day, hour int) (*uint64, error) {
    var occupant sql.NullInt64
    err := tx.QueryRowContext(ctx,
        "SELECT user_id FROM timetable_slots WHERE consultant_id=? AND day=? AND hour=? FOR UPDATE",
        consultantID, day, hour).Scan(&occupant)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrConsultantNotFound
    }
    if err != nil {
        return nil, err
    }
    if !occupant.Valid {
        return nil, nil
    }
    uid := uint64(occupant.Int64)
    return &uid, nil
}

// SetOccupantTx writes a cell's occupant within the caller's transaction.
// Passing nil clears the cell. The caller must already hold the row lock
// from OccupantForUpdateTx.
func (r *TimetableRepo) SetOccupantTx(ctx context.Context, tx *sql.Tx, consultantID uint64, day, hour int, userID *uint64) error {
    var occupant interface{}
    if userID != nil {
        occupant = *userID
    }
    _, err := tx.ExecContext(ctx,
        "UPDATE timetable_slots SET user_id=? WHERE consultant_id=? AND day=? AND hour=?",
        occupant, consultantID, day, hour)
    return err
}

// Occupant is the lock-free read of a single cell, used by the session
// gatekeeper's liveness derivation where a stale answer is corrected by
// the next poll anyway.
func (r *TimetableRepo) Occupant(ctx context.Context, consultantID uint64, day, hour int) (*uint64, error) {
    var occupant sql.NullInt64
    err := r.db.QueryRowContext(ctx,
        "SELECT user_id FROM timetable_slots WHERE consultant_id=? AND day=? AND hour=?",
        consultantID, day, hour).Scan(&occupant)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrConsultantNotFound
    }
    if err != nil {
        return nil, err
    }
    if !occupant.Valid {
        return nil, nil
    }
    uid := uint64(occupant.Int64)
    return &uid, nil
}

// ConsultantFor finds which consultant, if any, has the given user booked
// at (day, hour). Used when a booking user enters chat: unlike the
// consultant, they do not know whose grid holds their reservation.
func (r *TimetableRepo) ConsultantFor(ctx context.Context, userID uint64, day, hour int) (uint64, bool, error) {
    var consultantID uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT consultant_id FROM timetable_slots WHERE day=? AND hour=? AND user_id=? LIMIT 1",
        day, hour, userID).Scan(&consultantID)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return consultantID, true, nil
}

// Clear empties a single cell outside of any reservation transaction.
// The leave-chat path uses it to free the consumed slot; no refund is
// attached to this operation.
func (r *TimetableRepo) Clear(ctx context.Context, consultantID uint64, day, hour int) error {
    _, err := r.db.ExecContext(ctx,
        "UPDATE timetable_slots SET user_id=NULL WHERE consultant_id=? AND day=? AND hour=?",
        consultantID, day, hour)
    return err
}

// ShiftWindow rotates every consultant's grid forward by one day: day 2
// moves into day 1, day 3 into day 2, and day 3 is cleared. Bookings on
// the day that rolls off are discarded without per-cell notification;
// any chat still referring to one is torn down lazily by the next
// liveness poll. The three updates run in one transaction so a reader
// never observes a half-rotated grid. Callers must guarantee at most one
// invocation per day boundary: a second call shifts again.
func (r *TimetableRepo) ShiftWindow(ctx context.Context) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Day 1 takes day 2's occupants before day 2 is overwritten.
    const copyDown = `UPDATE timetable_slots a
                      JOIN timetable_slots b
                        ON b.consultant_id = a.consultant_id
                       AND b.hour = a.hour
                       AND b.day = a.day + 1
                      SET a.user_id = b.user_id
                      WHERE a.day = ?`
    for day := 1; day < model.TimetableDays; day++ {
        if _, err := tx.ExecContext(ctx, copyDown, day); err != nil {
            return err
        }
    }
    if _, err := tx.ExecContext(ctx,
        "UPDATE timetable_slots SET user_id=NULL WHERE day=?",
        model.TimetableDays); err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
