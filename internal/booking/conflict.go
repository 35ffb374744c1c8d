package booking

import (
	"context"
	"fmt"
	"time"

	"labadmin/internal/db"
)

const (
	ErrInvalidTime  = "invalid_time"
	ErrInvalidRange = "invalid_range"
	ErrServerError  = "server_error"
)

type Error struct {
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

// Request is a booking being proposed, either a one-off on Date or a weekly
// slot recurring on Date's weekday.
type Request struct {
	ID     int64
	RoomID int64
	Repeat bool
	Date   time.Time
	Start  string
	End    string
}

// ParseClock converts an "HH:MM" wall-clock string to minutes since
// midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, err
	}
	if len(s) != 5 || s[2] != ':' || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	return h*60 + m, nil
}

// overlaps reports whether two half-open minute ranges intersect. Touching
// endpoints (one meeting ending as another starts) do not conflict.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// sameOccupancy reports whether two bookings can ever fall on the same day.
// A recurring booking occupies its weekday forever, so it collides with any
// booking on that weekday; two one-offs collide only on the exact date.
func sameOccupancy(aRepeat bool, aDate time.Time, bRepeat bool, bDate time.Time) bool {
	if aRepeat || bRepeat {
		return aDate.Weekday() == bDate.Weekday()
	}
	ay, am, ad := aDate.Date()
	by, bm, bd := bDate.Date()
	return ay == by && am == bm && ad == bd
}

// AgendaLister is satisfied by the store's meeting queries.
type AgendaLister interface {
	ListAgendasByRoom(ctx context.Context, roomID int64) ([]db.MeetingAgenda, error)
}

// Checker detects time conflicts between a proposed booking and the agendas
// already registered for the room, confirmed or not.
type Checker struct {
	agendas AgendaLister
}

func NewChecker(agendas AgendaLister) *Checker {
	return &Checker{agendas: agendas}
}

// Check returns the first existing agenda the request collides with, or nil.
// When req.ID is nonzero the agenda with that id is skipped, so an update
// does not conflict with itself.
func (c *Checker) Check(ctx context.Context, req Request) (*db.MeetingAgenda, error) {
	start, err := ParseClock(req.Start)
	if err != nil {
		return nil, &Error{Code: ErrInvalidTime}
	}
	end, err := ParseClock(req.End)
	if err != nil {
		return nil, &Error{Code: ErrInvalidTime}
	}
	if start >= end {
		return nil, &Error{Code: ErrInvalidRange}
	}

	existing, err := c.agendas.ListAgendasByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, &Error{Code: ErrServerError}
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == req.ID {
			continue
		}
		if !sameOccupancy(req.Repeat, req.Date, other.Repeat, other.Date) {
			continue
		}
		oStart, err := ParseClock(other.StartTime)
		if err != nil {
			return nil, &Error{Code: ErrServerError}
		}
		oEnd, err := ParseClock(other.EndTime)
		if err != nil {
			return nil, &Error{Code: ErrServerError}
		}
		if overlaps(start, end, oStart, oEnd) {
			return other, nil
		}
	}
	return nil, nil
}
