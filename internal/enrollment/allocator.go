package enrollment

import (
	"context"

	"labadmin/internal/db"
)

const (
	ErrSubcourseNotFound = "subcourse_not_found"
	ErrCapacityExceeded  = "capacity_exceeded"
	ErrNotEnrolled       = "not_enrolled"
	ErrInvalidSeat       = "invalid_seat"
	ErrSeatTaken         = "seat_taken"
	ErrServerError       = "server_error"
)

type Error struct {
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

// Tx is the slice of storage the allocator touches inside one critical
// section. The production implementation maps onto a database transaction
// holding a row lock on the lab group, so two concurrent joins against the
// same group serialize.
type Tx interface {
	// LockGroupLimit locks the lab group for the rest of the critical
	// section and returns its seat limit. found is false when the group
	// does not exist.
	LockGroupLimit(ctx context.Context, subcourseID int64) (limit int64, found bool, err error)
	GetMember(ctx context.Context, subcourseID int64, stuID string) (member db.GroupMember, found bool, err error)
	CountMembers(ctx context.Context, subcourseID int64) (int64, error)
	ListMembers(ctx context.Context, subcourseID int64) ([]db.GroupMember, error)
	InsertMember(ctx context.Context, subcourseID int64, stuID, stuName string) (db.GroupMember, error)
	UpdateSeat(ctx context.Context, subcourseID int64, stuID string, seat int64) (bool, error)
	DeleteMember(ctx context.Context, subcourseID int64, stuID string) (bool, error)
}

// Backend runs a function inside a critical section. An error from fn rolls
// the section back.
type Backend interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Allocator hands out seats in capacity-bounded lab groups.
type Allocator struct {
	backend Backend
}

func New(backend Backend) *Allocator {
	return &Allocator{backend: backend}
}

// Join enrolls the student, assigning the next seat number after the current
// maximum. Joining a group the student already belongs to returns the
// existing membership unchanged. A full group returns ErrCapacityExceeded
// and writes nothing.
func (a *Allocator) Join(ctx context.Context, subcourseID int64, stuID, stuName string) (db.GroupMember, error) {
	var member db.GroupMember
	err := a.backend.InTx(ctx, func(tx Tx) error {
		limit, found, err := tx.LockGroupLimit(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		if !found {
			return &Error{Code: ErrSubcourseNotFound}
		}
		existing, found, err := tx.GetMember(ctx, subcourseID, stuID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		if found {
			member = existing
			return nil
		}
		count, err := tx.CountMembers(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		if count >= limit {
			return &Error{Code: ErrCapacityExceeded}
		}
		member, err = tx.InsertMember(ctx, subcourseID, stuID, stuName)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		return nil
	})
	if err != nil {
		return db.GroupMember{}, err
	}
	return member, nil
}

// Leave removes the student from the group. Leaving a group the student is
// not in is a no-op. Seats below the group's current maximum stay vacant;
// later joins keep counting from the maximum.
func (a *Allocator) Leave(ctx context.Context, subcourseID int64, stuID string) error {
	return a.backend.InTx(ctx, func(tx Tx) error {
		if _, err := tx.DeleteMember(ctx, subcourseID, stuID); err != nil {
			return &Error{Code: ErrServerError}
		}
		return nil
	})
}

// SetSeat moves the student to an explicit seat number. The target seat must
// be positive and not held by another member of the same group.
func (a *Allocator) SetSeat(ctx context.Context, subcourseID int64, stuID string, seat int64) error {
	if seat < 1 {
		return &Error{Code: ErrInvalidSeat}
	}
	return a.backend.InTx(ctx, func(tx Tx) error {
		_, found, err := tx.LockGroupLimit(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		if !found {
			return &Error{Code: ErrSubcourseNotFound}
		}
		members, err := tx.ListMembers(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		enrolled := false
		for _, m := range members {
			if m.StuID == stuID {
				enrolled = true
				continue
			}
			if m.Seat == seat {
				return &Error{Code: ErrSeatTaken}
			}
		}
		if !enrolled {
			return &Error{Code: ErrNotEnrolled}
		}
		if _, err := tx.UpdateSeat(ctx, subcourseID, stuID, seat); err != nil {
			return &Error{Code: ErrServerError}
		}
		return nil
	})
}

// Roster lists the group's members ordered by seat.
func (a *Allocator) Roster(ctx context.Context, subcourseID int64) ([]db.GroupMember, error) {
	var members []db.GroupMember
	err := a.backend.InTx(ctx, func(tx Tx) error {
		_, found, err := tx.LockGroupLimit(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		if !found {
			return &Error{Code: ErrSubcourseNotFound}
		}
		members, err = tx.ListMembers(ctx, subcourseID)
		if err != nil {
			return &Error{Code: ErrServerError}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
