package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// ReviewRepo manages reviews and the one-shot review_eligibility tokens
// that authorize them. A token is granted when a chat session ends and
// consumed by the first successful review submission for that pair.
type ReviewRepo struct {
    db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// ErrNotEligible is returned when the user holds no eligibility token
// for the consultant they are trying to review.
var ErrNotEligible = errors.New("no review eligibility for this consultant")

// ErrAlreadyReviewed is returned when a review for the pair already
// exists.
var ErrAlreadyReviewed = errors.New("consultant already reviewed")

// GrantEligibility creates the (user, consultant) token. INSERT IGNORE
// makes the grant idempotent: closing the same session twice, or two
// concurrent close paths racing, still leaves exactly one token.
func (r *ReviewRepo) GrantEligibility(ctx context.Context, userID, consultantID uint64) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO review_eligibility (user_id, consultant_id) VALUES (?,?)",
        userID, consultantID)
    return err
}

// Submit stores a review, consuming the pair's eligibility token in the
// same transaction. The DELETE doubles as the authorization check: zero
// rows deleted means no token, and the transaction rolls back without
// touching the reviews table. Losing the unique-key race on reviews
// also rolls back; a duplicate attempt can only happen when the original
// review already exists, and then there was no token to begin with.
func (r *ReviewRepo) Submit(ctx context.Context, userID, consultantID uint64, rating int, text string) error {
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

    res, err := tx.ExecContext(ctx,
        "DELETE FROM review_eligibility WHERE user_id=? AND consultant_id=?",
        userID, consultantID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotEligible
    }

    if _, err := tx.ExecContext(ctx,
        "INSERT INTO reviews (user_id, consultant_id, rating, review_text) VALUES (?,?,?,?)",
        userID, consultantID, rating, text); err != nil {
        if isDuplicateKey(err) {
            return ErrAlreadyReviewed
        }
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ReviewDetail is one listing entry with both usernames resolved.
type ReviewDetail struct {
    ID             uint64    `json:"id"`
    Rating         int       `json:"rating"`
    Text           string    `json:"text"`
    UserName       string    `json:"user_name"`
    ConsultantName string    `json:"consultant_name"`
    CreatedAt      time.Time `json:"created_at"`
}

// List returns all reviews, newest first.
func (r *ReviewRepo) List(ctx context.Context) ([]ReviewDetail, error) {
    const q = `SELECT r.id, r.rating, COALESCE(r.review_text, ''), u.username, c.username, r.created_at
               FROM reviews r
               JOIN users u ON u.id = r.user_id
               JOIN users c ON c.id = r.consultant_id
               ORDER BY r.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    details := make([]ReviewDetail, 0)
    for rows.Next() {
        var d ReviewDetail
        if err := rows.Scan(&d.ID, &d.Rating, &d.Text, &d.UserName, &d.ConsultantName, &d.CreatedAt); err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}
