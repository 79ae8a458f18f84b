package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/consultation-booking/internal/model"
)

// ChatRepo provides access to the chats table. The (user_id,
// consultant_id) pair is unique, so two concurrent entries into the same
// session race on the unique key rather than creating duplicates.
type ChatRepo struct {
    db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

// ErrChatNotFound is returned when no chat matches the given id.
var ErrChatNotFound = errors.New("chat not found")

// GetByID fetches a chat by id.
func (r *ChatRepo) GetByID(ctx context.Context, id uint64) (model.Chat, error) {
    var c model.Chat
    err := r.db.QueryRowContext(ctx,
        "SELECT id, user_id, consultant_id, created_at FROM chats WHERE id=? LIMIT 1",
        id).Scan(&c.ID, &c.UserID, &c.ConsultantID, &c.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return c, ErrChatNotFound
    }
    return c, err
}

// GetOrCreate returns the chat for the pair, creating it when absent.
// The create path is race-safe: losing the unique-key race to a
// concurrent caller falls back to fetching the row the winner inserted,
// so repeated entry into a session is idempotent.
func (r *ChatRepo) GetOrCreate(ctx context.Context, userID, consultantID uint64) (model.Chat, error) {
    c, err := r.getByPair(ctx, userID, consultantID)
    if err == nil {
        return c, nil
    }
    if !errors.Is(err, ErrChatNotFound) {
        return c, err
    }

    _, err = r.db.ExecContext(ctx,
        "INSERT INTO chats (user_id, consultant_id) VALUES (?,?)",
        userID, consultantID)
    if err != nil && !isDuplicateKey(err) {
        return model.Chat{}, err
    }
    return r.getByPair(ctx, userID, consultantID)
}

func (r *ChatRepo) getByPair(ctx context.Context, userID, consultantID uint64) (model.Chat, error) {
    var c model.Chat
    err := r.db.QueryRowContext(ctx,
        "SELECT id, user_id, consultant_id, created_at FROM chats WHERE user_id=? AND consultant_id=? LIMIT 1",
        userID, consultantID).Scan(&c.ID, &c.UserID, &c.ConsultantID, &c.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return c, ErrChatNotFound
    }
    return c, err
}

// Delete removes a chat; the transcript goes with it via the messages
// foreign key cascade. Deleting an already-deleted chat is a no-op, which
// keeps concurrent close paths idempotent.
func (r *ChatRepo) Delete(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx, "DELETE FROM chats WHERE id=?", id)
    return err
}
