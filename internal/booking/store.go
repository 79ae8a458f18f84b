package booking

import (
	"context"
	"database/sql"

	"github.com/iliyamo/consultation-booking/internal/repository"
)

// sqlStore backs the service with the MySQL repositories. Both legs of a
// reservation live in one database, so a single *sql.Tx spans the
// timetable cell and the balance row.
type sqlStore struct {
	timetable *repository.TimetableRepo
	credits   *repository.CreditRepo
}

// NewStore adapts the timetable and credit repositories into the
// service's transactional store.
func NewStore(timetable *repository.TimetableRepo, credits *repository.CreditRepo) Store {
	if timetable == nil || credits == nil {
		panic("nil repository passed to booking.NewStore")
	}
	return &sqlStore{timetable: timetable, credits: credits}
}

func (s *sqlStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.timetable.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{store: s, tx: tx}, nil
}

type sqlTx struct {
	store *sqlStore
	tx    *sql.Tx
}

func (t *sqlTx) OccupantForUpdate(ctx context.Context, consultantID uint64, day, hour int) (*uint64, error) {
	return t.store.timetable.OccupantForUpdateTx(ctx, t.tx, consultantID, day, hour)
}

func (t *sqlTx) SetOccupant(ctx context.Context, consultantID uint64, day, hour int, userID *uint64) error {
	return t.store.timetable.SetOccupantTx(ctx, t.tx, consultantID, day, hour, userID)
}

func (t *sqlTx) BalanceForUpdate(ctx context.Context, userID uint64) (uint32, error) {
	return t.store.credits.BalanceForUpdateTx(ctx, t.tx, userID)
}

func (t *sqlTx) Debit(ctx context.Context, userID uint64, amount int64) error {
	return t.store.credits.DebitTx(ctx, t.tx, userID, amount)
}

func (t *sqlTx) Credit(ctx context.Context, userID uint64, amount int64) error {
	return t.store.credits.CreditTx(ctx, t.tx, userID, amount)
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }
