package studentlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"labadmin/internal/db"
)

func TestLabWeek(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	cases := []struct {
		today string
		lag   int64
		want  int64
	}{
		{"2026-03-02", 0, 1}, // first day of the semester
		{"2026-03-08", 0, 1}, // last day of week one
		{"2026-03-09", 0, 2},
		{"2026-04-13", 0, 7},
		{"2026-03-02", 2, 3},  // lagged group starts at week three
		{"2026-03-09", -1, 1}, // group running a week early
		{"2026-02-20", 0, 1},  // before the semester clamps to week one
	}
	for _, tc := range cases {
		today, err := time.Parse("2006-01-02", tc.today)
		if err != nil {
			t.Fatal(err)
		}
		if got := LabWeek(today, start, tc.lag); got != tc.want {
			t.Errorf("LabWeek(%s, lag %d) = %d, want %d", tc.today, tc.lag, got, tc.want)
		}
	}
}

type fakeStorage struct {
	subcourse  db.Subcourse
	semester   db.Semester
	member     db.GroupMember
	noMember   bool
	schedules  map[int64]db.CourseSchedule
	recent     *db.StudentLog
	logs       map[int64]db.StudentLog
	nextID     int64
	scheduleBy int64 // records the week asked for
}

func (f *fakeStorage) GetSubcourse(ctx context.Context, id int64) (db.Subcourse, error) {
	if id != f.subcourse.ID {
		return db.Subcourse{}, pgx.ErrNoRows
	}
	return f.subcourse, nil
}

func (f *fakeStorage) GetCurrentSemester(ctx context.Context, today time.Time) (db.Semester, error) {
	if f.semester.ID == 0 {
		return db.Semester{}, pgx.ErrNoRows
	}
	return f.semester, nil
}

func (f *fakeStorage) GetMembership(ctx context.Context, subcourseID int64, stuID string) (db.GroupMember, error) {
	if f.noMember {
		return db.GroupMember{}, pgx.ErrNoRows
	}
	return f.member, nil
}

func (f *fakeStorage) GetScheduleByWeek(ctx context.Context, courseID, week int64) (db.CourseSchedule, error) {
	f.scheduleBy = week
	s, ok := f.schedules[week]
	if !ok {
		return db.CourseSchedule{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStorage) GetRecentStudentLog(ctx context.Context, stuID string, subcourseID int64, cutoff time.Time) (db.StudentLog, error) {
	if f.recent == nil || f.recent.FinTime.Before(cutoff) {
		return db.StudentLog{}, pgx.ErrNoRows
	}
	return *f.recent, nil
}

func (f *fakeStorage) CreateStudentLog(ctx context.Context, l db.StudentLog) (db.StudentLog, error) {
	f.nextID++
	l.ID = f.nextID
	if f.logs == nil {
		f.logs = make(map[int64]db.StudentLog)
	}
	f.logs[l.ID] = l
	return l, nil
}

func (f *fakeStorage) UpdateStudentLogNote(ctx context.Context, id int64, seat int64, labName, note string, finTime time.Time) (bool, error) {
	l, ok := f.logs[id]
	if !ok || l.Confirm {
		return false, nil
	}
	l.Seat, l.LabName, l.Note, l.FinTime = seat, labName, note, finTime
	f.logs[id] = l
	return true, nil
}

func (f *fakeStorage) GetStudentLog(ctx context.Context, id int64) (db.StudentLog, error) {
	l, ok := f.logs[id]
	if !ok {
		return db.StudentLog{}, pgx.ErrNoRows
	}
	return l, nil
}

func (f *fakeStorage) ConfirmStudentLog(ctx context.Context, id int64, teaNote, teaName string) (bool, error) {
	l, ok := f.logs[id]
	if !ok {
		return false, nil
	}
	l.TeaNote, l.TeaName, l.Confirm = teaNote, teaName, true
	f.logs[id] = l
	return true, nil
}

func newFixture() (*fakeStorage, *Synthesizer, time.Time) {
	now := time.Date(2026, 3, 18, 14, 0, 0, 0, time.UTC) // week three Wednesday
	storage := &fakeStorage{
		subcourse: db.Subcourse{ID: 7, RoomID: 3, CourseID: 2, LagWeek: 0},
		semester: db.Semester{
			ID:    1,
			Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		},
		member: db.GroupMember{StuID: "20261234", Seat: 12, SubcourseID: 7},
		schedules: map[int64]db.CourseSchedule{
			3: {ID: 30, Week: 3, Name: "Op-amp basics", CourseID: 2},
		},
	}
	syn := New(storage)
	syn.now = func() time.Time { return now }
	return storage, syn, now
}

func TestDefaultLogSynthesizesDraft(t *testing.T) {
	storage, syn, now := newFixture()

	log, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7)
	if err != nil {
		t.Fatal(err)
	}
	if log.ID != 0 {
		t.Fatalf("draft should not be persisted, got id %d", log.ID)
	}
	if log.RoomID != 3 || log.Seat != 12 {
		t.Fatalf("room/seat = %d/%d, want 3/12", log.RoomID, log.Seat)
	}
	if log.LabName != "Op-amp basics" {
		t.Fatalf("lab name = %q", log.LabName)
	}
	if storage.scheduleBy != 3 {
		t.Fatalf("looked up week %d, want 3", storage.scheduleBy)
	}
	if !log.FinTime.Equal(now) {
		t.Fatalf("fin time = %v", log.FinTime)
	}
}

func TestDefaultLogLagShiftsWeek(t *testing.T) {
	storage, syn, _ := newFixture()
	storage.subcourse.LagWeek = 1

	if _, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7); err != nil {
		t.Fatal(err)
	}
	if storage.scheduleBy != 4 {
		t.Fatalf("looked up week %d, want 4", storage.scheduleBy)
	}
}

func TestDefaultLogMissingScheduleLeavesNameEmpty(t *testing.T) {
	storage, syn, _ := newFixture()
	storage.schedules = nil

	log, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7)
	if err != nil {
		t.Fatal(err)
	}
	if log.LabName != "" {
		t.Fatalf("lab name = %q, want empty", log.LabName)
	}
}

func TestDefaultLogReturnsRecentReport(t *testing.T) {
	storage, syn, now := newFixture()
	storage.recent = &db.StudentLog{
		ID: 42, StuID: "20261234", SubcourseID: 7, Note: "done",
		FinTime: now.Add(-2 * time.Hour),
	}

	log, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7)
	if err != nil {
		t.Fatal(err)
	}
	if log.ID != 42 {
		t.Fatalf("id = %d, want the persisted report", log.ID)
	}
}

func TestDefaultLogStaleReportIgnored(t *testing.T) {
	storage, syn, now := newFixture()
	storage.recent = &db.StudentLog{
		ID: 42, StuID: "20261234", SubcourseID: 7,
		FinTime: now.Add(-6 * time.Hour),
	}

	log, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7)
	if err != nil {
		t.Fatal(err)
	}
	if log.ID != 0 {
		t.Fatalf("id = %d, want a fresh draft", log.ID)
	}
}

func TestDefaultLogRequiresMembership(t *testing.T) {
	storage, syn, _ := newFixture()
	storage.noMember = true

	_, err := syn.DefaultLog(context.Background(), "20261234", "Wang", 7)
	var opErr *Error
	if !errors.As(err, &opErr) || opErr.Code != ErrNotEnrolled {
		t.Fatalf("err = %v, want %q", err, ErrNotEnrolled)
	}
}

func TestSubmitOverwritesUnconfirmed(t *testing.T) {
	storage, syn, now := newFixture()
	first, err := syn.Submit(context.Background(), "20261234", "Wang", 7, 3, 12, "Op-amp basics", "v1")
	if err != nil {
		t.Fatal(err)
	}
	storage.recent = &first

	second, err := syn.Submit(context.Background(), "20261234", "Wang", 7, 3, 12, "Op-amp basics", "v2")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmission created id %d, want %d", second.ID, first.ID)
	}
	if second.Note != "v2" {
		t.Fatalf("note = %q", second.Note)
	}
	if !second.FinTime.Equal(now) {
		t.Fatalf("fin time = %v", second.FinTime)
	}
}

func TestSubmitRejectsConfirmed(t *testing.T) {
	storage, syn, _ := newFixture()
	first, err := syn.Submit(context.Background(), "20261234", "Wang", 7, 3, 12, "Op-amp basics", "v1")
	if err != nil {
		t.Fatal(err)
	}
	if err := syn.Confirm(context.Background(), first.ID, "good work", "Prof. Li"); err != nil {
		t.Fatal(err)
	}
	confirmed := storage.logs[first.ID]
	storage.recent = &confirmed

	_, err = syn.Submit(context.Background(), "20261234", "Wang", 7, 3, 12, "Op-amp basics", "v2")
	var opErr *Error
	if !errors.As(err, &opErr) || opErr.Code != ErrLogConfirmed {
		t.Fatalf("err = %v, want %q", err, ErrLogConfirmed)
	}
}

func TestConfirmUnknownLog(t *testing.T) {
	_, syn, _ := newFixture()
	err := syn.Confirm(context.Background(), 999, "", "Prof. Li")
	var opErr *Error
	if !errors.As(err, &opErr) || opErr.Code != ErrLogNotFound {
		t.Fatalf("err = %v, want %q", err, ErrLogNotFound)
	}
}
