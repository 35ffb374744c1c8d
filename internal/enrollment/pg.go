package enrollment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"labadmin/internal/db"
)

const txRetries = 3

// PGBackend binds the allocator to Postgres. The critical section is a
// transaction that takes FOR UPDATE on the subcourse row, so membership
// counting and insertion happen under the same lock.
type PGBackend struct {
	store *db.Store
}

func NewPGBackend(store *db.Store) *PGBackend {
	return &PGBackend{store: store}
}

func (b *PGBackend) InTx(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = b.store.WithTx(ctx, func(q *db.Queries) error {
			return fn(pgTx{q: q})
		})
		if !retryable(err) {
			return err
		}
	}
	return err
}

// retryable matches serialization failures and deadlocks, which Postgres
// asks the client to retry.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type pgTx struct {
	q *db.Queries
}

func (t pgTx) LockGroupLimit(ctx context.Context, subcourseID int64) (int64, bool, error) {
	limit, err := t.q.LockSubcourseLimit(ctx, subcourseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return limit, true, nil
}

func (t pgTx) GetMember(ctx context.Context, subcourseID int64, stuID string) (db.GroupMember, bool, error) {
	m, err := t.q.GetMembership(ctx, subcourseID, stuID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.GroupMember{}, false, nil
	}
	if err != nil {
		return db.GroupMember{}, false, err
	}
	return m, true, nil
}

func (t pgTx) CountMembers(ctx context.Context, subcourseID int64) (int64, error) {
	return t.q.CountMembers(ctx, subcourseID)
}

func (t pgTx) ListMembers(ctx context.Context, subcourseID int64) ([]db.GroupMember, error) {
	return t.q.ListGroup(ctx, subcourseID)
}

func (t pgTx) InsertMember(ctx context.Context, subcourseID int64, stuID, stuName string) (db.GroupMember, error) {
	return t.q.InsertMember(ctx, subcourseID, stuID, stuName)
}

func (t pgTx) UpdateSeat(ctx context.Context, subcourseID int64, stuID string, seat int64) (bool, error) {
	return t.q.UpdateMemberSeat(ctx, subcourseID, stuID, seat)
}

func (t pgTx) DeleteMember(ctx context.Context, subcourseID int64, stuID string) (bool, error) {
	return t.q.DeleteMembership(ctx, subcourseID, stuID)
}
