package model

import "time"

// Chat identifies the live messaging channel between one user and one
// consultant.  At most one chat exists per (user, consultant) pair at any
// time; the pair is unique in the `chats` table.  A chat exists only while
// the gatekeeper still considers the pair bound to a valid slot, and is
// deleted together with its transcript the moment that binding breaks.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – the booking user.
//  ConsultantID – the consultant being consulted.
//  CreatedAt    – timestamp of creation.
type Chat struct {
    ID           uint64    // chats.id
    UserID       uint64    // chats.user_id
    ConsultantID uint64    // chats.consultant_id
    CreatedAt    time.Time // chats.created_at
}

// Parties returns true when id is one of the two chat members.
func (c Chat) Parties(id uint64) bool {
    return id == c.UserID || id == c.ConsultantID
}

// Message is one entry of a chat transcript.  Messages are append-only
// and totally ordered by their auto-increment id, which matches insertion
// order within a chat.
//
// Fields:
//  ID       – primary key; strictly increasing per chat.
//  ChatID   – owning chat.
//  SenderID – user who sent the message; always a chat member.
//  Body     – message text, never empty or whitespace-only.
//  SentAt   – server-side timestamp assigned on insert.
type Message struct {
    ID       uint64    // messages.id
    ChatID   uint64    // messages.chat_id
    SenderID uint64    // messages.sender_id
    Body     string    // messages.body
    SentAt   time.Time // messages.sent_at
}
