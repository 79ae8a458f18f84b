package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/consultation-booking/internal/model"
)

// MessageRepo provides access to the append-only messages table. Message
// ids come from the auto-increment column, so they are strictly
// increasing per chat and insertion order equals id order.
type MessageRepo struct {
    db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Append inserts a message and returns the stored row, including the
// generated id and the server-side sent_at timestamp. The row is queried
// back after the insert to populate the database-assigned defaults.
func (r *MessageRepo) Append(ctx context.Context, chatID, senderID uint64, body string) (model.Message, error) {
    var m model.Message
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO messages (chat_id, sender_id, body) VALUES (?,?,?)",
        chatID, senderID, body)
    if err != nil {
        return m, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return m, err
    }
    err = r.db.QueryRowContext(ctx,
        "SELECT id, chat_id, sender_id, body, sent_at FROM messages WHERE id=?",
        id).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.SentAt)
    return m, err
}

// ListAfter returns all messages of a chat with id greater than afterID
// in ascending id order. Polling with the last seen id is restartable:
// the same cursor with no new messages yields an empty slice.
func (r *MessageRepo) ListAfter(ctx context.Context, chatID, afterID uint64) ([]model.Message, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT id, chat_id, sender_id, body, sent_at FROM messages WHERE chat_id=? AND id > ? ORDER BY id ASC",
        chatID, afterID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    msgs := make([]model.Message, 0)
    for rows.Next() {
        var m model.Message
        if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
            return nil, err
        }
        msgs = append(msgs, m)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return msgs, nil
}
