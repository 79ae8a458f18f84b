package repository

import (
    "context"
    "database/sql"
    "errors"
)

// CreditRepo is the credit ledger: every balance mutation in the system
// goes through it. The credits column is UNSIGNED, so even a bug that
// slipped past the guarded debit below could not drive a balance
// negative at the storage level.
type CreditRepo struct {
    db *sql.DB
}

func NewCreditRepo(db *sql.DB) *CreditRepo { return &CreditRepo{db: db} }

// ErrInsufficientCredits is returned when a debit would take the balance
// below zero. The balance is left untouched.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrInvalidAmount is returned for non-positive amounts before any store
// access happens.
var ErrInvalidAmount = errors.New("amount must be a positive integer")

// Balance returns the user's current credit balance.
func (r *CreditRepo) Balance(ctx context.Context, userID uint64) (uint32, error) {
    var credits uint32
    err := r.db.QueryRowContext(ctx,
        "SELECT credits FROM users WHERE id=?", userID).Scan(&credits)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, ErrUserNotFound
    }
    return credits, err
}

// BalanceForUpdateTx reads the balance and takes an exclusive lock on the
// user's row for the remainder of the transaction. Reserve and cancel
// both lock the timetable cell first and the balance row second; keeping
// that order everywhere is what rules out lock-order deadlocks.
func (r *CreditRepo) BalanceForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (uint32, error) {
    var credits uint32
    err := tx.QueryRowContext(ctx,
        "SELECT credits FROM users WHERE id=? FOR UPDATE", userID).Scan(&credits)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, ErrUserNotFound
    }
    return credits, err
}

// DebitTx subtracts amount inside the caller's transaction. The UPDATE
// itself re-checks the balance, so even without a prior
// BalanceForUpdateTx the debit can never overdraw.
func (r *CreditRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
    if amount <= 0 {
        return ErrInvalidAmount
    }
    res, err := tx.ExecContext(ctx,
        "UPDATE users SET credits = credits - ? WHERE id=? AND credits >= ?",
        amount, userID, amount)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrInsufficientCredits
    }
    return nil
}

// CreditTx adds amount inside the caller's transaction.
func (r *CreditRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
    if amount <= 0 {
        return ErrInvalidAmount
    }
    res, err := tx.ExecContext(ctx,
        "UPDATE users SET credits = credits + ? WHERE id=?", amount, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrUserNotFound
    }
    return nil
}

// Credit performs a standalone atomic top-up, used by the admin credit
// grant endpoint. A single UPDATE needs no explicit transaction.
func (r *CreditRepo) Credit(ctx context.Context, userID uint64, amount int64) error {
    if amount <= 0 {
        return ErrInvalidAmount
    }
    res, err := r.db.ExecContext(ctx,
        "UPDATE users SET credits = credits + ? WHERE id=?", amount, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrUserNotFound
    }
    return nil
}
