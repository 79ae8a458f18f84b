package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/consultation-booking/internal/queue"
	"github.com/iliyamo/consultation-booking/internal/repository"
)

// metricsSpy records every result label pushed at it.
type metricsSpy struct {
	mu            sync.Mutex
	reservations  []string
	cancellations []string
}

func (m *metricsSpy) RecordReservation(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations = append(m.reservations, result)
}

func (m *metricsSpy) RecordCancellation(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations = append(m.cancellations, result)
}

type cellKey struct {
	consultantID uint64
	day, hour    int
}

// memStore is an in-memory Store. It models row locking with one mutex:
// the first ForUpdate read of a transaction takes the lock and Commit or
// Rollback releases it, so two transactions on the same cell serialize
// exactly like FOR UPDATE serializes them in MySQL. Writes are staged
// and applied on Commit only.
type memStore struct {
	mu       sync.Mutex
	occupant map[cellKey]uint64
	balance  map[uint64]int64
	begun    int
}

func newMemStore() *memStore {
	return &memStore{
		occupant: make(map[cellKey]uint64),
		balance:  make(map[uint64]int64),
	}
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	s.mu.Lock()
	s.begun++
	s.mu.Unlock()
	return &memTx{s: s}, nil
}

func (s *memStore) occupantOf(consultantID uint64, day, hour int) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.occupant[cellKey{consultantID, day, hour}]
	return uid, ok
}

func (s *memStore) balanceOf(userID uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance[userID]
}

func (s *memStore) beginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begun
}

type memTx struct {
	s      *memStore
	held   bool
	done   bool
	writes []func(*memStore)
}

func (t *memTx) acquire() {
	if !t.held {
		t.s.mu.Lock()
		t.held = true
	}
}

func (t *memTx) OccupantForUpdate(_ context.Context, consultantID uint64, day, hour int) (*uint64, error) {
	t.acquire()
	if uid, ok := t.s.occupant[cellKey{consultantID, day, hour}]; ok {
		u := uid
		return &u, nil
	}
	return nil, nil
}

func (t *memTx) SetOccupant(_ context.Context, consultantID uint64, day, hour int, userID *uint64) error {
	t.acquire()
	k := cellKey{consultantID, day, hour}
	if userID == nil {
		t.writes = append(t.writes, func(s *memStore) { delete(s.occupant, k) })
		return nil
	}
	uid := *userID
	t.writes = append(t.writes, func(s *memStore) { s.occupant[k] = uid })
	return nil
}

func (t *memTx) BalanceForUpdate(_ context.Context, userID uint64) (uint32, error) {
	t.acquire()
	b, ok := t.s.balance[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return uint32(b), nil
}

func (t *memTx) Debit(_ context.Context, userID uint64, amount int64) error {
	t.acquire()
	t.writes = append(t.writes, func(s *memStore) { s.balance[userID] -= amount })
	return nil
}

func (t *memTx) Credit(_ context.Context, userID uint64, amount int64) error {
	t.acquire()
	t.writes = append(t.writes, func(s *memStore) { s.balance[userID] += amount })
	return nil
}

func (t *memTx) Commit() error {
	for _, w := range t.writes {
		w(t.s)
	}
	t.finish()
	return nil
}

func (t *memTx) Rollback() error {
	t.finish()
	return nil
}

func (t *memTx) finish() {
	if t.done {
		return
	}
	t.done = true
	t.writes = nil
	if t.held {
		t.s.mu.Unlock()
		t.held = false
	}
}

func newTestService(store Store, m Metrics) *Service {
	s := NewService(store, nil, m)
	s.publish = func(context.Context, queue.BookingEvent) error { return nil }
	return s
}

func TestReserveRejectsInvalidSlot(t *testing.T) {
	cases := []struct {
		name      string
		day, hour int
	}{
		{"day zero", 0, 1},
		{"day four", 4, 1},
		{"hour zero", 1, 0},
		{"hour nine", 1, 9},
		{"negative day", -1, 3},
		{"negative hour", 2, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spy := &metricsSpy{}
			store := newMemStore()
			svc := newTestService(store, spy)
			err := svc.Reserve(context.Background(), 1, 2, tc.day, tc.hour)
			if !errors.Is(err, ErrInvalidSlot) {
				t.Fatalf("Reserve(%d,%d) = %v, want ErrInvalidSlot", tc.day, tc.hour, err)
			}
			if len(spy.reservations) != 1 || spy.reservations[0] != "invalid" {
				t.Fatalf("reservation metrics = %v, want [invalid]", spy.reservations)
			}
			if store.beginCount() != 0 {
				t.Fatal("validation failure still opened a transaction")
			}
		})
	}
}

func TestCancelRejectsInvalidSlot(t *testing.T) {
	spy := &metricsSpy{}
	svc := newTestService(newMemStore(), spy)
	err := svc.Cancel(context.Background(), 1, 2, 3, 12)
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("Cancel = %v, want ErrInvalidSlot", err)
	}
	if len(spy.cancellations) != 1 || spy.cancellations[0] != "invalid" {
		t.Fatalf("cancellation metrics = %v, want [invalid]", spy.cancellations)
	}
}

func TestReserveThenCancelRestoresBalance(t *testing.T) {
	const userID, consultantID uint64 = 10, 20
	spy := &metricsSpy{}
	store := newMemStore()
	store.balance[userID] = 120
	svc := newTestService(store, spy)
	ctx := context.Background()

	if err := svc.Reserve(ctx, userID, consultantID, 2, 5); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := store.balanceOf(userID); got != 120-SlotPriceCredits {
		t.Fatalf("balance after reserve = %d, want %d", got, 120-SlotPriceCredits)
	}
	if uid, ok := store.occupantOf(consultantID, 2, 5); !ok || uid != userID {
		t.Fatalf("occupant after reserve = (%d,%v), want (%d,true)", uid, ok, userID)
	}

	if err := svc.Cancel(ctx, userID, consultantID, 2, 5); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := store.balanceOf(userID); got != 120 {
		t.Fatalf("balance after cancel = %d, want the exact prior 120", got)
	}
	if _, ok := store.occupantOf(consultantID, 2, 5); ok {
		t.Fatal("cell still occupied after cancel")
	}
	if spy.reservations[0] != "success" || spy.cancellations[0] != "success" {
		t.Fatalf("metrics = %v / %v, want success both ways", spy.reservations, spy.cancellations)
	}
}

func TestReserveInsufficientCreditsLeavesStateUntouched(t *testing.T) {
	const userID, consultantID uint64 = 10, 20
	spy := &metricsSpy{}
	store := newMemStore()
	store.balance[userID] = SlotPriceCredits - 1
	svc := newTestService(store, spy)

	err := svc.Reserve(context.Background(), userID, consultantID, 1, 1)
	if !errors.Is(err, repository.ErrInsufficientCredits) {
		t.Fatalf("Reserve = %v, want ErrInsufficientCredits", err)
	}
	if got := store.balanceOf(userID); got != SlotPriceCredits-1 {
		t.Fatalf("balance = %d, want untouched %d", got, SlotPriceCredits-1)
	}
	if _, ok := store.occupantOf(consultantID, 1, 1); ok {
		t.Fatal("cell occupied despite rejected debit")
	}
	if spy.reservations[0] != "insufficient_credits" {
		t.Fatalf("metrics = %v, want [insufficient_credits]", spy.reservations)
	}
}

func TestReserveOccupiedCell(t *testing.T) {
	const userID, otherID, consultantID uint64 = 10, 11, 20
	store := newMemStore()
	store.balance[userID] = 100
	store.occupant[cellKey{consultantID, 1, 1}] = otherID
	svc := newTestService(store, &metricsSpy{})

	err := svc.Reserve(context.Background(), userID, consultantID, 1, 1)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("Reserve = %v, want ErrSlotTaken", err)
	}
	if got := store.balanceOf(userID); got != 100 {
		t.Fatalf("balance = %d, want untouched 100", got)
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	const userID, otherID, consultantID uint64 = 10, 11, 20
	store := newMemStore()
	store.balance[userID] = 100
	store.occupant[cellKey{consultantID, 1, 1}] = otherID
	svc := newTestService(store, &metricsSpy{})
	ctx := context.Background()

	if err := svc.Cancel(ctx, userID, consultantID, 1, 1); !errors.Is(err, ErrNotSlotOwner) {
		t.Fatalf("Cancel another user's slot = %v, want ErrNotSlotOwner", err)
	}
	if err := svc.Cancel(ctx, userID, consultantID, 1, 2); !errors.Is(err, ErrNotSlotOwner) {
		t.Fatalf("Cancel an empty slot = %v, want ErrNotSlotOwner", err)
	}
	if got := store.balanceOf(userID); got != 100 {
		t.Fatalf("balance = %d, want untouched 100 (no phantom refund)", got)
	}
	if uid, _ := store.occupantOf(consultantID, 1, 1); uid != otherID {
		t.Fatal("other user's reservation was disturbed")
	}
}

func TestConcurrentReservesSameCellOneWinner(t *testing.T) {
	const consultantID uint64 = 20
	users := []uint64{10, 11}
	store := newMemStore()
	for _, u := range users {
		store.balance[u] = 100
	}
	svc := newTestService(store, &metricsSpy{})

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u uint64) {
			defer wg.Done()
			errs[i] = svc.Reserve(context.Background(), u, consultantID, 1, 1)
		}(i, u)
	}
	wg.Wait()

	var winner, loser uint64
	switch {
	case errs[0] == nil && errors.Is(errs[1], ErrSlotTaken):
		winner, loser = users[0], users[1]
	case errs[1] == nil && errors.Is(errs[0], ErrSlotTaken):
		winner, loser = users[1], users[0]
	default:
		t.Fatalf("want exactly one success and one ErrSlotTaken, got %v / %v", errs[0], errs[1])
	}

	if uid, ok := store.occupantOf(consultantID, 1, 1); !ok || uid != winner {
		t.Fatalf("occupant = (%d,%v), want the winner %d", uid, ok, winner)
	}
	if got := store.balanceOf(winner); got != 100-SlotPriceCredits {
		t.Fatalf("winner balance = %d, want %d", got, 100-SlotPriceCredits)
	}
	if got := store.balanceOf(loser); got != 100 {
		t.Fatalf("loser balance = %d, want untouched 100", got)
	}
}

func TestEmitDeliversEvent(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	got := make(chan queue.BookingEvent, 1)
	svc.publish = func(_ context.Context, ev queue.BookingEvent) error {
		got <- ev
		return nil
	}
	svc.emit(queue.BookingEvent{Kind: queue.KindSlotReserved, UserID: 7, ConsultantID: 9})
	select {
	case ev := <-got:
		if ev.Kind != queue.KindSlotReserved || ev.UserID != 7 || ev.ConsultantID != 9 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}
}
