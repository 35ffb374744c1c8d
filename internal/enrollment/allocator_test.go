package enrollment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"labadmin/internal/db"
)

// memBackend serializes every critical section behind one mutex, the same
// guarantee the row lock gives the Postgres binding.
type memBackend struct {
	mu     sync.Mutex
	limits map[int64]int64
	groups map[int64][]db.GroupMember
	nextID int64
}

func newMemBackend() *memBackend {
	return &memBackend{
		limits: make(map[int64]int64),
		groups: make(map[int64][]db.GroupMember),
	}
}

func (b *memBackend) InTx(ctx context.Context, fn func(Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(memTx{b: b})
}

type memTx struct {
	b *memBackend
}

func (t memTx) LockGroupLimit(ctx context.Context, subcourseID int64) (int64, bool, error) {
	limit, ok := t.b.limits[subcourseID]
	return limit, ok, nil
}

func (t memTx) GetMember(ctx context.Context, subcourseID int64, stuID string) (db.GroupMember, bool, error) {
	for _, m := range t.b.groups[subcourseID] {
		if m.StuID == stuID {
			return m, true, nil
		}
	}
	return db.GroupMember{}, false, nil
}

func (t memTx) CountMembers(ctx context.Context, subcourseID int64) (int64, error) {
	return int64(len(t.b.groups[subcourseID])), nil
}

func (t memTx) ListMembers(ctx context.Context, subcourseID int64) ([]db.GroupMember, error) {
	members := make([]db.GroupMember, len(t.b.groups[subcourseID]))
	copy(members, t.b.groups[subcourseID])
	return members, nil
}

func (t memTx) InsertMember(ctx context.Context, subcourseID int64, stuID, stuName string) (db.GroupMember, error) {
	var maxSeat int64
	for _, m := range t.b.groups[subcourseID] {
		if m.Seat > maxSeat {
			maxSeat = m.Seat
		}
	}
	t.b.nextID++
	member := db.GroupMember{
		ID:          t.b.nextID,
		StuID:       stuID,
		StuName:     stuName,
		Seat:        maxSeat + 1,
		SubcourseID: subcourseID,
	}
	t.b.groups[subcourseID] = append(t.b.groups[subcourseID], member)
	return member, nil
}

func (t memTx) UpdateSeat(ctx context.Context, subcourseID int64, stuID string, seat int64) (bool, error) {
	for i, m := range t.b.groups[subcourseID] {
		if m.StuID == stuID {
			t.b.groups[subcourseID][i].Seat = seat
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) DeleteMember(ctx context.Context, subcourseID int64, stuID string) (bool, error) {
	members := t.b.groups[subcourseID]
	for i, m := range members {
		if m.StuID == stuID {
			t.b.groups[subcourseID] = append(members[:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var opErr *Error
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return opErr.Code
}

func TestJoinAssignsSequentialSeats(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 10
	alloc := New(backend)

	for i, stu := range []string{"s1", "s2", "s3"} {
		m, err := alloc.Join(context.Background(), 1, stu, "Student "+stu)
		if err != nil {
			t.Fatalf("join %s: %v", stu, err)
		}
		if m.Seat != int64(i+1) {
			t.Fatalf("join %s: seat = %d, want %d", stu, m.Seat, i+1)
		}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 2
	alloc := New(backend)

	first, err := alloc.Join(context.Background(), 1, "s1", "Alice")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	again, err := alloc.Join(context.Background(), 1, "s1", "Alice")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if again.Seat != first.Seat || again.ID != first.ID {
		t.Fatalf("second join returned %+v, want %+v", again, first)
	}
	count, _ := memTx{b: backend}.CountMembers(context.Background(), 1)
	if count != 1 {
		t.Fatalf("member count = %d, want 1", count)
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 1
	alloc := New(backend)

	if _, err := alloc.Join(context.Background(), 1, "s1", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, err := alloc.Join(context.Background(), 1, "s2", "")
	if code := errCode(t, err); code != ErrCapacityExceeded {
		t.Fatalf("code = %q, want %q", code, ErrCapacityExceeded)
	}
}

func TestJoinUnknownGroup(t *testing.T) {
	alloc := New(newMemBackend())
	_, err := alloc.Join(context.Background(), 99, "s1", "")
	if code := errCode(t, err); code != ErrSubcourseNotFound {
		t.Fatalf("code = %q, want %q", code, ErrSubcourseNotFound)
	}
}

// A full group must never exceed its limit no matter how many joins race.
func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const limit = 8
	const contenders = 64

	backend := newMemBackend()
	backend.limits[1] = limit
	alloc := New(backend)

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := alloc.Join(context.Background(), 1, string(rune('A'+n%26))+string(rune('0'+n/26)), "")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var admitted, rejected int
	for err := range results {
		if err == nil {
			admitted++
			continue
		}
		if code := errCode(t, err); code != ErrCapacityExceeded {
			t.Fatalf("unexpected code %q", code)
		}
		rejected++
	}
	if admitted != limit {
		t.Fatalf("admitted = %d, want %d", admitted, limit)
	}
	if rejected != contenders-limit {
		t.Fatalf("rejected = %d, want %d", rejected, contenders-limit)
	}

	members, err := alloc.Roster(context.Background(), 1)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	seats := make(map[int64]bool)
	for _, m := range members {
		if seats[m.Seat] {
			t.Fatalf("seat %d assigned twice", m.Seat)
		}
		seats[m.Seat] = true
		if m.Seat < 1 || m.Seat > limit {
			t.Fatalf("seat %d out of range", m.Seat)
		}
	}
}

func TestLeaveKeepsLowerSeatsVacant(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 10
	alloc := New(backend)
	ctx := context.Background()

	for _, stu := range []string{"s1", "s2", "s3"} {
		if _, err := alloc.Join(ctx, 1, stu, ""); err != nil {
			t.Fatalf("join %s: %v", stu, err)
		}
	}
	if err := alloc.Leave(ctx, 1, "s2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	m, err := alloc.Join(ctx, 1, "s4", "")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if m.Seat != 4 {
		t.Fatalf("seat = %d, want 4 (seat 2 stays vacant)", m.Seat)
	}
}

// Vacated capacity opens the group again but freed seat numbers below the
// maximum are not handed back out.
func TestVacatedSeatNotReassigned(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 2
	alloc := New(backend)
	ctx := context.Background()

	a, _ := alloc.Join(ctx, 1, "A", "")
	b, _ := alloc.Join(ctx, 1, "B", "")
	if a.Seat != 1 || b.Seat != 2 {
		t.Fatalf("seats = %d,%d, want 1,2", a.Seat, b.Seat)
	}
	_, err := alloc.Join(ctx, 1, "C", "")
	if code := errCode(t, err); code != ErrCapacityExceeded {
		t.Fatalf("code = %q, want %q", code, ErrCapacityExceeded)
	}
	if err := alloc.Leave(ctx, 1, "A"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	c, err := alloc.Join(ctx, 1, "C", "")
	if err != nil {
		t.Fatalf("join after vacancy: %v", err)
	}
	if c.Seat != 3 {
		t.Fatalf("seat = %d, want 3", c.Seat)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 5
	alloc := New(backend)
	ctx := context.Background()

	if _, err := alloc.Join(ctx, 1, "s1", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := alloc.Leave(ctx, 1, "s1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	// Leaving again, or without ever joining, succeeds without effect.
	if err := alloc.Leave(ctx, 1, "s1"); err != nil {
		t.Fatalf("second leave: %v", err)
	}
	if err := alloc.Leave(ctx, 1, "ghost"); err != nil {
		t.Fatalf("leave without membership: %v", err)
	}
	count, _ := memTx{b: backend}.CountMembers(ctx, 1)
	if count != 0 {
		t.Fatalf("member count = %d, want 0", count)
	}
}

func TestSetSeat(t *testing.T) {
	backend := newMemBackend()
	backend.limits[1] = 5
	alloc := New(backend)
	ctx := context.Background()

	if _, err := alloc.Join(ctx, 1, "s1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := alloc.Join(ctx, 1, "s2", ""); err != nil {
		t.Fatal(err)
	}

	if err := alloc.SetSeat(ctx, 1, "s1", 7); err != nil {
		t.Fatalf("set seat: %v", err)
	}
	err := alloc.SetSeat(ctx, 1, "s2", 7)
	if code := errCode(t, err); code != ErrSeatTaken {
		t.Fatalf("code = %q, want %q", code, ErrSeatTaken)
	}
	// Re-asserting one's own seat is allowed.
	if err := alloc.SetSeat(ctx, 1, "s1", 7); err != nil {
		t.Fatalf("reassert seat: %v", err)
	}
	err = alloc.SetSeat(ctx, 1, "s1", 0)
	if code := errCode(t, err); code != ErrInvalidSeat {
		t.Fatalf("code = %q, want %q", code, ErrInvalidSeat)
	}
	err = alloc.SetSeat(ctx, 1, "ghost", 3)
	if code := errCode(t, err); code != ErrNotEnrolled {
		t.Fatalf("code = %q, want %q", code, ErrNotEnrolled)
	}
}
