package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/consultation-booking/internal/model"
	"github.com/iliyamo/consultation-booking/internal/queue"
	"github.com/iliyamo/consultation-booking/internal/repository"
	"github.com/iliyamo/consultation-booking/internal/slotclock"
)

// Close reasons reported to metrics and logs.
const (
	CloseReasonLeave           = "leave"
	CloseReasonSlotOver        = "slot_over"
	CloseReasonOccupantChanged = "occupant_changed"
)

// ErrNoActiveSlot is returned by Enter when the clock reports no current
// consulting slot.
var ErrNoActiveSlot = errors.New("no active consulting slot")

// ErrNotBooked is returned by Enter when the requesting party has no
// booking in the current slot.
var ErrNotBooked = errors.New("current slot is not booked for this party")

// ErrEmptyMessage is returned by PostMessage for empty or whitespace-only
// bodies, before any store access.
var ErrEmptyMessage = errors.New("message body is empty")

// TimetableStore is the slice of the timetable repository the gatekeeper
// consumes.
type TimetableStore interface {
	// Occupant returns the user occupying the consultant's (day, hour)
	// cell, nil when empty, repository.ErrConsultantNotFound when the
	// consultant does not exist.
	Occupant(ctx context.Context, consultantID uint64, day, hour int) (*uint64, error)
	// ConsultantFor finds the consultant whose (day, hour) cell is
	// occupied by userID; ok is false when there is none.
	ConsultantFor(ctx context.Context, userID uint64, day, hour int) (uint64, bool, error)
	// Clear empties the consultant's (day, hour) cell unconditionally.
	Clear(ctx context.Context, consultantID uint64, day, hour int) error
}

// ChatStore persists the one chat per (user, consultant) pair.
type ChatStore interface {
	GetByID(ctx context.Context, id uint64) (model.Chat, error)
	GetOrCreate(ctx context.Context, userID, consultantID uint64) (model.Chat, error)
	Delete(ctx context.Context, id uint64) error
}

// MessageStore is the append-only transcript behind a chat.
type MessageStore interface {
	Append(ctx context.Context, chatID, senderID uint64, body string) (model.Message, error)
	ListAfter(ctx context.Context, chatID, afterID uint64) ([]model.Message, error)
}

// EligibilityStore grants the one-shot review token when a session ends.
// The grant must be idempotent.
type EligibilityStore interface {
	GrantEligibility(ctx context.Context, userID, consultantID uint64) error
}

// Metrics is the slice of the metrics collector the gatekeeper needs.
type Metrics interface {
	RecordSessionOpened()
	RecordSessionClosed(reason string)
	RecordMessagePosted()
}

// Session describes an authorized live chat binding.
type Session struct {
	Chat model.Chat     `json:"chat"`
	Slot slotclock.Slot `json:"slot"`
}

// PolledMessage is one transcript entry as seen by a particular party.
type PolledMessage struct {
	ID     uint64 `json:"id"`
	Body   string `json:"body"`
	SentAt string `json:"sent_at"`
	Mine   bool   `json:"mine"`
}

// Gatekeeper decides, per request, whether a live chat between a user and
// a consultant is authorized right now. It stores no session state: on
// every call validity is re-derived from the current slot, the timetable
// occupant and chat existence, so the stored picture can never drift from
// the timetable. When a chat falls out of the current slot the gatekeeper
// grants the review-eligibility token and deletes the chat with its
// transcript. The grant runs before the delete and is idempotent, so
// repeated or concurrent closes converge to exactly one token.
type Gatekeeper struct {
	timetable   TimetableStore
	chats       ChatStore
	messages    MessageStore
	eligibility EligibilityStore
	log         *zap.Logger
	metrics     Metrics

	// now and publish are swappable in tests; they default to
	// slotclock.Now and queue.Publish.
	now     func() (slotclock.Slot, bool)
	publish func(ctx context.Context, ev queue.BookingEvent) error
}

// NewGatekeeper constructs a Gatekeeper. All stores must be non-nil;
// logger and metrics may be nil.
func NewGatekeeper(timetable TimetableStore, chats ChatStore, messages MessageStore, eligibility EligibilityStore, logger *zap.Logger, m Metrics) *Gatekeeper {
	if timetable == nil || chats == nil || messages == nil || eligibility == nil {
		panic("nil store passed to session.NewGatekeeper")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatekeeper{
		timetable:   timetable,
		chats:       chats,
		messages:    messages,
		eligibility: eligibility,
		log:         logger,
		metrics:     m,
		now:         slotclock.Now,
		publish:     queue.Publish,
	}
}

// Enter authorizes the calling party into their current-slot chat,
// creating the chat record on first access. Repeated entry during the
// same slot returns the same chat. It returns ErrNoActiveSlot outside the
// consulting window, ErrNotBooked when the current slot holds no booking
// for this party and repository.ErrForbidden for roles other than user
// and consultant.
func (g *Gatekeeper) Enter(ctx context.Context, callerID uint64, role string) (Session, error) {
	slot, ok := g.now()
	if !ok {
		return Session{}, ErrNoActiveSlot
	}

	var userID, consultantID uint64
	switch role {
	case model.RoleConsultant:
		occupant, err := g.timetable.Occupant(ctx, callerID, slot.Day, slot.Hour)
		if err != nil {
			if errors.Is(err, repository.ErrConsultantNotFound) {
				return Session{}, ErrNotBooked
			}
			return Session{}, fmt.Errorf("read occupant: %w", err)
		}
		if occupant == nil {
			return Session{}, ErrNotBooked
		}
		userID, consultantID = *occupant, callerID
	case model.RoleUser:
		cid, booked, err := g.timetable.ConsultantFor(ctx, callerID, slot.Day, slot.Hour)
		if err != nil {
			return Session{}, fmt.Errorf("find booking: %w", err)
		}
		if !booked {
			return Session{}, ErrNotBooked
		}
		userID, consultantID = callerID, cid
	default:
		return Session{}, repository.ErrForbidden
	}

	chat, err := g.chats.GetOrCreate(ctx, userID, consultantID)
	if err != nil {
		return Session{}, fmt.Errorf("get or create chat: %w", err)
	}
	if g.metrics != nil {
		g.metrics.RecordSessionOpened()
	}
	g.log.Debug("chat entered",
		zap.Uint64("chat_id", chat.ID),
		zap.Uint64("user_id", userID),
		zap.Uint64("consultant_id", consultantID),
		zap.Int("day", slot.Day),
		zap.Int("hour", slot.Hour))
	return Session{Chat: chat, Slot: slot}, nil
}

// CheckActive reports whether the chat is still validly bound to the
// current slot. A chat that is no longer valid is closed on the spot:
// the eligibility token is granted and the chat deleted. A chat that has
// already been deleted reports inactive without error, so polling clients
// of a just-closed session see a clean shutdown. Callers who are not a
// party to the chat get repository.ErrForbidden.
func (g *Gatekeeper) CheckActive(ctx context.Context, chatID, callerID uint64) (bool, error) {
	chat, err := g.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load chat: %w", err)
	}
	if !chat.Parties(callerID) {
		return false, repository.ErrForbidden
	}

	slot, ok := g.now()
	if !ok {
		if err := g.close(ctx, chat, CloseReasonSlotOver); err != nil {
			return false, err
		}
		return false, nil
	}
	occupant, err := g.timetable.Occupant(ctx, chat.ConsultantID, slot.Day, slot.Hour)
	if err != nil && !errors.Is(err, repository.ErrConsultantNotFound) {
		return false, fmt.Errorf("read occupant: %w", err)
	}
	if occupant == nil || *occupant != chat.UserID {
		if err := g.close(ctx, chat, CloseReasonOccupantChanged); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Leave ends the session on request of either party. The consultant's
// current slot is freed without a refund, the session having been
// consumed, then the chat is closed. Returns repository.ErrChatNotFound
// for an unknown chat and repository.ErrForbidden for outsiders.
func (g *Gatekeeper) Leave(ctx context.Context, chatID, callerID uint64) error {
	chat, err := g.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return repository.ErrChatNotFound
		}
		return fmt.Errorf("load chat: %w", err)
	}
	if !chat.Parties(callerID) {
		return repository.ErrForbidden
	}

	if slot, ok := g.now(); ok {
		if err := g.timetable.Clear(ctx, chat.ConsultantID, slot.Day, slot.Hour); err != nil {
			return fmt.Errorf("free slot: %w", err)
		}
	}
	return g.close(ctx, chat, CloseReasonLeave)
}

// PostMessage appends one message to the chat transcript. The body is
// trimmed and must be non-empty; the sender must be a chat party.
func (g *Gatekeeper) PostMessage(ctx context.Context, chatID, senderID uint64, body string) (model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Message{}, ErrEmptyMessage
	}
	chat, err := g.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return model.Message{}, repository.ErrChatNotFound
		}
		return model.Message{}, fmt.Errorf("load chat: %w", err)
	}
	if !chat.Parties(senderID) {
		return model.Message{}, repository.ErrForbidden
	}
	msg, err := g.messages.Append(ctx, chatID, senderID, body)
	if err != nil {
		return model.Message{}, fmt.Errorf("append message: %w", err)
	}
	if g.metrics != nil {
		g.metrics.RecordMessagePosted()
	}
	return msg, nil
}

// Poll returns every message with id greater than afterID in ascending
// id order, each tagged with whether the caller sent it. Repeating a
// poll with the same cursor after no new messages yields an empty slice.
func (g *Gatekeeper) Poll(ctx context.Context, chatID, callerID, afterID uint64) ([]PolledMessage, error) {
	chat, err := g.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, repository.ErrChatNotFound
		}
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if !chat.Parties(callerID) {
		return nil, repository.ErrForbidden
	}
	msgs, err := g.messages.ListAfter(ctx, chatID, afterID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]PolledMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, PolledMessage{
			ID:     m.ID,
			Body:   m.Body,
			SentAt: m.SentAt.Format("15:04"),
			Mine:   m.SenderID == callerID,
		})
	}
	return out, nil
}

// close grants the review-eligibility token and deletes the chat with its
// transcript. The grant comes first: if the delete then fails, a retry
// re-grants idempotently and still converges to one token per pair.
func (g *Gatekeeper) close(ctx context.Context, chat model.Chat, reason string) error {
	if err := g.eligibility.GrantEligibility(ctx, chat.UserID, chat.ConsultantID); err != nil {
		return fmt.Errorf("grant review eligibility: %w", err)
	}
	if err := g.chats.Delete(ctx, chat.ID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if g.metrics != nil {
		g.metrics.RecordSessionClosed(reason)
	}
	g.log.Info("chat closed",
		zap.Uint64("chat_id", chat.ID),
		zap.Uint64("user_id", chat.UserID),
		zap.Uint64("consultant_id", chat.ConsultantID),
		zap.String("reason", reason))
	g.emit(queue.BookingEvent{
		Kind:         queue.KindSessionClosed,
		ConsultantID: chat.ConsultantID,
		UserID:       chat.UserID,
		Reason:       reason,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// emit publishes the close event without failing the close; broker
// outages only cost the audit line.
func (g *Gatekeeper) emit(ev queue.BookingEvent) {
	pub := g.publish
	if pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub(ctx, ev); err != nil {
			g.log.Warn("event publish failed", zap.String("kind", ev.Kind), zap.Error(err))
		}
	}()
}
