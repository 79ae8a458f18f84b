package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/consultation-booking/internal/model"
	"github.com/iliyamo/consultation-booking/internal/queue"
	"github.com/iliyamo/consultation-booking/internal/repository"
)

// SlotPriceCredits is the fixed price of one consultation slot. Every
// reservation debits exactly this amount and every cancellation refunds
// it.
const SlotPriceCredits = 50

// ErrInvalidSlot is returned when (day, hour) falls outside the 3-day,
// 8-hour timetable window.
var ErrInvalidSlot = errors.New("invalid slot coordinates")

// ErrSlotTaken is returned when the requested slot already has an
// occupant.
var ErrSlotTaken = errors.New("slot already reserved")

// ErrNotSlotOwner is returned when a user tries to cancel a slot that is
// empty or held by someone else.
var ErrNotSlotOwner = errors.New("slot is not reserved by this user")

// Store opens reservation transactions against the system of record.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one reserve or cancel transaction spanning the timetable and the
// credit ledger. The ForUpdate reads take exclusive row locks that the
// implementation must hold until Commit or Rollback; lock acquisition
// order is the caller's responsibility.
type Tx interface {
	OccupantForUpdate(ctx context.Context, consultantID uint64, day, hour int) (*uint64, error)
	SetOccupant(ctx context.Context, consultantID uint64, day, hour int, userID *uint64) error
	BalanceForUpdate(ctx context.Context, userID uint64) (uint32, error)
	Debit(ctx context.Context, userID uint64, amount int64) error
	Credit(ctx context.Context, userID uint64, amount int64) error
	Commit() error
	Rollback() error
}

// Metrics is the slice of the metrics collector the service needs.
type Metrics interface {
	RecordReservation(result string)
	RecordCancellation(result string)
}

// Service performs slot reservations and cancellations. Both operations
// run in a single transaction and acquire row locks in a fixed order,
// timetable row first and balance row second, so two concurrent calls on
// the same (consultant, slot, user) pair can never deadlock. Debit and
// occupancy commit together or not at all.
type Service struct {
	store   Store
	log     *zap.Logger
	metrics Metrics

	// publish is swappable in tests; defaults to queue.Publish.
	publish func(ctx context.Context, ev queue.BookingEvent) error
}

// NewService constructs a Service. The store must be non-nil; logger and
// metrics may be nil, in which case they are replaced with no-ops.
func NewService(store Store, logger *zap.Logger, m Metrics) *Service {
	if store == nil {
		panic("nil store passed to booking.NewService")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		log:     logger,
		metrics: m,
		publish: queue.Publish,
	}
}

// Reserve books the (day, hour) slot of the given consultant for userID
// at the fixed price. It returns ErrInvalidSlot for out-of-window
// coordinates, repository.ErrConsultantNotFound when the consultant does
// not exist, ErrSlotTaken when the cell is occupied and
// repository.ErrInsufficientCredits when the balance is below the price.
func (s *Service) Reserve(ctx context.Context, userID, consultantID uint64, day, hour int) error {
	if !model.ValidSlot(day, hour) {
		s.recordReservation("invalid")
		return ErrInvalidSlot
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		s.recordReservation("error")
		return fmt.Errorf("begin reserve tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the timetable row before the balance row.
	occupant, err := tx.OccupantForUpdate(ctx, consultantID, day, hour)
	if err != nil {
		if errors.Is(err, repository.ErrConsultantNotFound) {
			s.recordReservation("not_found")
			return err
		}
		s.recordReservation("error")
		return fmt.Errorf("lock slot: %w", err)
	}
	if occupant != nil {
		s.recordReservation("slot_taken")
		return ErrSlotTaken
	}

	balance, err := tx.BalanceForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordReservation("not_found")
			return err
		}
		s.recordReservation("error")
		return fmt.Errorf("lock balance: %w", err)
	}
	if balance < SlotPriceCredits {
		s.recordReservation("insufficient_credits")
		return repository.ErrInsufficientCredits
	}
	if err := tx.Debit(ctx, userID, SlotPriceCredits); err != nil {
		s.recordReservation("error")
		return fmt.Errorf("debit: %w", err)
	}
	if err := tx.SetOccupant(ctx, consultantID, day, hour, &userID); err != nil {
		s.recordReservation("error")
		return fmt.Errorf("occupy slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.recordReservation("error")
		return fmt.Errorf("commit reserve: %w", err)
	}
	committed = true

	s.recordReservation("success")
	s.log.Info("slot reserved",
		zap.Uint64("user_id", userID),
		zap.Uint64("consultant_id", consultantID),
		zap.Int("day", day),
		zap.Int("hour", hour))
	s.emit(queue.BookingEvent{
		Kind:         queue.KindSlotReserved,
		ConsultantID: consultantID,
		UserID:       userID,
		Day:          day,
		Hour:         hour,
		PriceCredits: SlotPriceCredits,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// Cancel releases a slot previously reserved by userID and refunds the
// fixed price. It returns ErrInvalidSlot for out-of-window coordinates,
// repository.ErrConsultantNotFound when the consultant does not exist
// and ErrNotSlotOwner when the cell is empty or held by another user.
func (s *Service) Cancel(ctx context.Context, userID, consultantID uint64, day, hour int) error {
	if !model.ValidSlot(day, hour) {
		s.recordCancellation("invalid")
		return ErrInvalidSlot
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		s.recordCancellation("error")
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Same lock order as Reserve: timetable row, then balance row.
	occupant, err := tx.OccupantForUpdate(ctx, consultantID, day, hour)
	if err != nil {
		if errors.Is(err, repository.ErrConsultantNotFound) {
			s.recordCancellation("not_found")
			return err
		}
		s.recordCancellation("error")
		return fmt.Errorf("lock slot: %w", err)
	}
	if occupant == nil || *occupant != userID {
		s.recordCancellation("not_owner")
		return ErrNotSlotOwner
	}

	if err := tx.SetOccupant(ctx, consultantID, day, hour, nil); err != nil {
		s.recordCancellation("error")
		return fmt.Errorf("clear slot: %w", err)
	}
	if err := tx.Credit(ctx, userID, SlotPriceCredits); err != nil {
		s.recordCancellation("error")
		return fmt.Errorf("refund: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.recordCancellation("error")
		return fmt.Errorf("commit cancel: %w", err)
	}
	committed = true

	s.recordCancellation("success")
	s.log.Info("slot cancelled",
		zap.Uint64("user_id", userID),
		zap.Uint64("consultant_id", consultantID),
		zap.Int("day", day),
		zap.Int("hour", hour))
	s.emit(queue.BookingEvent{
		Kind:         queue.KindSlotCancelled,
		ConsultantID: consultantID,
		UserID:       userID,
		Day:          day,
		Hour:         hour,
		PriceCredits: SlotPriceCredits,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// recordReservation and recordCancellation guard against a nil metrics
// collector.
func (s *Service) recordReservation(result string) {
	if s.metrics != nil {
		s.metrics.RecordReservation(result)
	}
}

func (s *Service) recordCancellation(result string) {
	if s.metrics != nil {
		s.metrics.RecordCancellation(result)
	}
}

// emit publishes an event without failing the request; broker outages
// only cost the audit line.
func (s *Service) emit(ev queue.BookingEvent) {
	pub := s.publish
	if pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub(ctx, ev); err != nil {
			s.log.Warn("event publish failed", zap.String("kind", ev.Kind), zap.Error(err))
		}
	}()
}
