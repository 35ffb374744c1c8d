package studentlog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"labadmin/internal/db"
)

// RecentWindow bounds how far back a lab report still counts as the report
// of the current session. A student returning within the window edits the
// same report instead of opening a new one.
const RecentWindow = 5 * time.Hour

const (
	ErrSubcourseNotFound = "subcourse_not_found"
	ErrNoCurrentSemester = "no_current_semester"
	ErrNotEnrolled       = "not_enrolled"
	ErrLogConfirmed      = "log_confirmed"
	ErrLogNotFound       = "log_not_found"
	ErrServerError       = "server_error"
)

type Error struct {
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

// LabWeek converts a calendar date to the one-based teaching week of a lab
// group. lagWeek shifts groups that start their cycle later in the term.
func LabWeek(today, semesterStart time.Time, lagWeek int64) int64 {
	days := int64(today.Sub(semesterStart).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days/7 + 1 + lagWeek
}

// Storage is the slice of queries the synthesizer reads and writes.
type Storage interface {
	GetSubcourse(ctx context.Context, id int64) (db.Subcourse, error)
	GetCurrentSemester(ctx context.Context, today time.Time) (db.Semester, error)
	GetMembership(ctx context.Context, subcourseID int64, stuID string) (db.GroupMember, error)
	GetScheduleByWeek(ctx context.Context, courseID, week int64) (db.CourseSchedule, error)
	GetRecentStudentLog(ctx context.Context, stuID string, subcourseID int64, cutoff time.Time) (db.StudentLog, error)
	CreateStudentLog(ctx context.Context, l db.StudentLog) (db.StudentLog, error)
	UpdateStudentLogNote(ctx context.Context, id int64, seat int64, labName, note string, finTime time.Time) (bool, error)
	GetStudentLog(ctx context.Context, id int64) (db.StudentLog, error)
	ConfirmStudentLog(ctx context.Context, id int64, teaNote, teaName string) (bool, error)
}

// Synthesizer prepares and records lab session reports.
type Synthesizer struct {
	storage Storage
	now     func() time.Time
}

func New(storage Storage) *Synthesizer {
	return &Synthesizer{storage: storage, now: time.Now}
}

// DefaultLog returns the report a student should see when opening the log
// form: the persisted report of the current session if one exists, otherwise
// a synthesized draft carrying the room, the seat and the lab title for this
// teaching week. The draft is not persisted.
func (s *Synthesizer) DefaultLog(ctx context.Context, stuID, stuName string, subcourseID int64) (db.StudentLog, error) {
	now := s.now()

	existing, err := s.storage.GetRecentStudentLog(ctx, stuID, subcourseID, now.Add(-RecentWindow))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}

	sub, err := s.storage.GetSubcourse(ctx, subcourseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.StudentLog{}, &Error{Code: ErrSubcourseNotFound}
		}
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}

	semester, err := s.storage.GetCurrentSemester(ctx, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.StudentLog{}, &Error{Code: ErrNoCurrentSemester}
		}
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}

	member, err := s.storage.GetMembership(ctx, subcourseID, stuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.StudentLog{}, &Error{Code: ErrNotEnrolled}
		}
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}

	week := LabWeek(now, semester.Start, sub.LagWeek)

	// Weeks with no scheduled lab still get a draft, just without a title.
	var labName string
	schedule, err := s.storage.GetScheduleByWeek(ctx, sub.CourseID, week)
	if err == nil {
		labName = schedule.Name
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}

	return db.StudentLog{
		StuID:       stuID,
		StuName:     stuName,
		SubcourseID: subcourseID,
		RoomID:      sub.RoomID,
		Seat:        member.Seat,
		LabName:     labName,
		FinTime:     now,
	}, nil
}

// Submit records a finished lab report. A report submitted within the window
// of an earlier one overwrites it, unless a teacher already confirmed it.
func (s *Synthesizer) Submit(ctx context.Context, stuID, stuName string, subcourseID, roomID, seat int64, labName, note string) (db.StudentLog, error) {
	now := s.now()

	existing, err := s.storage.GetRecentStudentLog(ctx, stuID, subcourseID, now.Add(-RecentWindow))
	switch {
	case err == nil:
		if existing.Confirm {
			return db.StudentLog{}, &Error{Code: ErrLogConfirmed}
		}
		if _, err := s.storage.UpdateStudentLogNote(ctx, existing.ID, seat, labName, note, now); err != nil {
			return db.StudentLog{}, &Error{Code: ErrServerError}
		}
		updated, err := s.storage.GetStudentLog(ctx, existing.ID)
		if err != nil {
			return db.StudentLog{}, &Error{Code: ErrServerError}
		}
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		created, err := s.storage.CreateStudentLog(ctx, db.StudentLog{
			StuID:       stuID,
			StuName:     stuName,
			SubcourseID: subcourseID,
			RoomID:      roomID,
			Seat:        seat,
			LabName:     labName,
			Note:        note,
			FinTime:     now,
		})
		if err != nil {
			return db.StudentLog{}, &Error{Code: ErrServerError}
		}
		return created, nil
	default:
		return db.StudentLog{}, &Error{Code: ErrServerError}
	}
}

// Confirm stores the teacher's remark and freezes the report.
func (s *Synthesizer) Confirm(ctx context.Context, logID int64, teaNote, teaName string) error {
	ok, err := s.storage.ConfirmStudentLog(ctx, logID, teaNote, teaName)
	if err != nil {
		return &Error{Code: ErrServerError}
	}
	if !ok {
		return &Error{Code: ErrLogNotFound}
	}
	return nil
}
