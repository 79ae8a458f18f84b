package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/consultation-booking/internal/model"
    "github.com/iliyamo/consultation-booking/internal/utils"
)

// UserRepo provides access to the users table. Consultant creation also
// seeds the consultant's empty timetable grid so that every grid cell
// exists as a lockable row from the first moment the consultant is
// visible to booking users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrUserExists is returned when the username or email is already taken.
var ErrUserExists = errors.New("username or email already exists")

// ErrUserNotFound is returned when no user matches the given identifier.
var ErrUserNotFound = errors.New("user not found")

// Create inserts a user and returns its ID. The password is hashed with
// bcrypt before storage. For consultants the 3×8 timetable grid is seeded
// inside the same transaction, so a consultant either exists with a full
// grid or not at all.
func (r *UserRepo) Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error) {
    username = strings.TrimSpace(username)
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }

    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        "INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
        username, email, hash, role)
    if err != nil {
        if isDuplicateKey(err) {
            return 0, ErrUserExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }

    if role == model.RoleConsultant {
        if err := seedGridTx(ctx, tx, uint64(id)); err != nil {
            return 0, err
        }
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return uint64(id), nil
}

// seedGridTx inserts the 24 empty cells of a fresh consultant grid in a
// single statement.
func seedGridTx(ctx context.Context, tx *sql.Tx, consultantID uint64) error {
    query := "INSERT INTO timetable_slots (consultant_id, day, hour) VALUES "
    args := make([]interface{}, 0, model.TimetableDays*model.TimetableHours*3)
    for day := 1; day <= model.TimetableDays; day++ {
        for hour := 1; hour <= model.TimetableHours; hour++ {
            if len(args) > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            args = append(args, consultantID, day, hour)
        }
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,username,email,password_hash,role,credits,created_at,updated_at FROM users WHERE email=? LIMIT 1",
        email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return u, ErrUserNotFound
    }
    return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,username,email,password_hash,role,credits,created_at,updated_at FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return u, ErrUserNotFound
    }
    return u, err
}

// Consultant is the public listing entry for one consultant: identity
// plus the current occupancy of their timetable grid.
type Consultant struct {
    ID       uint64              `json:"id"`
    Username string              `json:"username"`
    Grid     model.TimetableGrid `json:"timetable"`
}

// ListConsultants returns all consultants ordered by username, each with
// their full grid. Grids are assembled from a single query over
// timetable_slots to avoid one round trip per consultant.
func (r *UserRepo) ListConsultants(ctx context.Context) ([]Consultant, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id, username FROM users WHERE role=? ORDER BY username ASC",
        model.RoleConsultant)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    consultants := make([]Consultant, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var c Consultant
        if err := rows.Scan(&c.ID, &c.Username); err != nil {
            return nil, err
        }
        index[c.ID] = len(consultants)
        consultants = append(consultants, c)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(consultants) == 0 {
        return consultants, nil
    }

    srows, err := r.DB.QueryContext(ctx,
        "SELECT consultant_id, day, hour, user_id FROM timetable_slots ORDER BY consultant_id, day, hour")
    if err != nil {
        return nil, err
    }
    defer srows.Close()
    for srows.Next() {
        var (
            cid      uint64
            day, hr  int
            occupant sql.NullInt64
        )
        if err := srows.Scan(&cid, &day, &hr, &occupant); err != nil {
            return nil, err
        }
        idx, ok := index[cid]
        if !ok || !model.ValidSlot(day, hr) {
            continue
        }
        if occupant.Valid {
            uid := uint64(occupant.Int64)
            consultants[idx].Grid[day-1][hr-1] = &uid
        }
    }
    if err := srows.Err(); err != nil {
        return nil, err
    }
    return consultants, nil
}
