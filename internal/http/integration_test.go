package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"labadmin/internal/auth"
	"labadmin/internal/config"
	"labadmin/internal/db"
	internalhttp "labadmin/internal/http"
	"labadmin/internal/perm"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	t.Cleanup(pool.Close)
	store := db.NewStore(pool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "integration-secret",
		JWTIssuer:  "labadmin-test",
		TokenTTL:   10 * time.Minute,
		LoginToken: "integration-login",
	}
}

func issueToken(t *testing.T, cfg config.Config, userID, name string, permission perm.Permission) string {
	t.Helper()
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, auth.Claims{
		UserID:     userID,
		Realname:   name,
		Permission: permission,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

// seedGroup creates a semester, a course, a lab room and one lab group with
// the given capacity, returning the subcourse id.
func seedGroup(t *testing.T, store *db.Store, suffix string, limit int64) int64 {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	semester, err := store.Queries.CreateSemester(ctx, db.Semester{
		Name:  "it-semester-" + suffix,
		Start: now.AddDate(0, 0, -14),
		End:   now.AddDate(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("seed semester: %v", err)
	}
	room, err := store.Queries.CreateLabroom(ctx, db.Labroom{Room: "B-101-" + suffix})
	if err != nil {
		t.Fatalf("seed labroom: %v", err)
	}
	course, err := store.Queries.CreateCourse(ctx, db.Course{
		Name: "it-course-" + suffix, TeaID: "tea-" + suffix, TeaName: "Prof. Test",
	})
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	sub, err := store.Queries.CreateSubcourse(ctx, db.Subcourse{
		Weekday: 3, RoomID: room.ID, TeaID: "tea-" + suffix,
		YearID: semester.ID, StuLimit: limit, CourseID: course.ID,
	})
	if err != nil {
		t.Fatalf("seed subcourse: %v", err)
	}
	return sub.ID
}

func TestGroupJoinCapacityOverHTTP(t *testing.T) {
	store := openTestStore(t)
	cfg := testConfig()
	app := httptest.NewServer(internalhttp.NewServer(cfg, store, nil).Router())
	defer app.Close()

	suffix := fmt.Sprintf("cap-%d", time.Now().UnixNano())
	subID := seedGroup(t, store, suffix, 2)
	url := fmt.Sprintf("%s/stu/group/%d", app.URL, subID)

	first := issueToken(t, cfg, "stu-"+suffix+"-1", "Student One", perm.Student)
	second := issueToken(t, cfg, "stu-"+suffix+"-2", "Student Two", perm.Student)
	third := issueToken(t, cfg, "stu-"+suffix+"-3", "Student Three", perm.Student)

	resp := doReq(t, http.MethodPost, url, first, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first join: got %d", resp.StatusCode)
	}
	var member db.GroupMember
	decodeBody(t, resp, &member)
	if member.Seat != 1 {
		t.Fatalf("first seat = %d, want 1", member.Seat)
	}

	// Re-joining is a no-op, not a second seat.
	resp = doReq(t, http.MethodPost, url, first, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rejoin: got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &member)
	if member.Seat != 1 {
		t.Fatalf("rejoin seat = %d, want 1", member.Seat)
	}

	if resp := doReq(t, http.MethodPost, url, second, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("second join: got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, url, third, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("over-capacity join: got %d, want 409", resp.StatusCode)
	}

	// A teacher token cannot use the student join endpoint.
	teacher := issueToken(t, cfg, "tea-"+suffix, "Prof. Test", perm.Teacher)
	if resp := doReq(t, http.MethodPost, url, teacher, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("teacher join: got %d, want 403", resp.StatusCode)
	}
}

func TestAgendaConflictOverHTTP(t *testing.T) {
	store := openTestStore(t)
	cfg := testConfig()
	app := httptest.NewServer(internalhttp.NewServer(cfg, store, nil).Router())
	defer app.Close()

	suffix := fmt.Sprintf("mtg-%d", time.Now().UnixNano())
	room, err := store.Queries.CreateMeetingRoom(context.Background(), db.MeetingRoom{Room: "M-" + suffix})
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}

	user := issueToken(t, cfg, "usr-"+suffix, "Booker", perm.Teacher)
	manager := issueToken(t, cfg, "mgr-"+suffix, "Manager", perm.Teacher|perm.MeetingManager)

	// 2026-09-02 is a Wednesday.
	weekly := map[string]interface{}{
		"title": "group seminar", "repeat": true, "date": "2026-09-02",
		"start_time": "14:00", "end_time": "16:00", "room_id": room.ID,
	}
	resp := doReq(t, http.MethodPost, app.URL+"/agenda", user, weekly)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("weekly create: got %d", resp.StatusCode)
	}
	var created db.MeetingAgenda
	decodeBody(t, resp, &created)
	if created.Confirm {
		t.Fatal("booking by a plain user must start unconfirmed")
	}

	// A one-off on a later Wednesday overlapping the slot is rejected.
	oneOff := map[string]interface{}{
		"title": "thesis defense", "repeat": false, "date": "2026-09-23",
		"start_time": "15:00", "end_time": "17:00", "room_id": room.ID,
	}
	resp = doReq(t, http.MethodPost, app.URL+"/agenda", user, oneOff)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflicting one-off: got %d, want 409", resp.StatusCode)
	}

	// The same slot on a Thursday is fine.
	oneOff["date"] = "2026-09-24"
	resp = doReq(t, http.MethodPost, app.URL+"/agenda", user, oneOff)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("free one-off: got %d", resp.StatusCode)
	}

	// A manager's booking is confirmed on creation.
	board := map[string]interface{}{
		"title": "faculty board", "repeat": false, "date": "2026-09-24",
		"start_time": "09:00", "end_time": "10:00", "room_id": room.ID,
	}
	resp = doReq(t, http.MethodPost, app.URL+"/agenda", manager, board)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("manager create: got %d", resp.StatusCode)
	}
	var managed db.MeetingAgenda
	decodeBody(t, resp, &managed)
	if !managed.Confirm {
		t.Fatal("manager booking should be confirmed on creation")
	}

	// Only a meeting manager confirms.
	confirmURL := fmt.Sprintf("%s/agenda/%d/confirm", app.URL, created.ID)
	if resp := doReq(t, http.MethodPost, confirmURL, user, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("confirm as user: got %d, want 403", resp.StatusCode)
	}
	if resp := doReq(t, http.MethodPost, confirmURL, manager, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm as manager: got %d", resp.StatusCode)
	}
}

func TestDefaultLogOverHTTP(t *testing.T) {
	store := openTestStore(t)
	cfg := testConfig()
	app := httptest.NewServer(internalhttp.NewServer(cfg, store, nil).Router())
	defer app.Close()

	suffix := fmt.Sprintf("log-%d", time.Now().UnixNano())
	subID := seedGroup(t, store, suffix, 5)

	student := issueToken(t, cfg, "stu-"+suffix, "Logger", perm.Student)
	joinURL := fmt.Sprintf("%s/stu/group/%d", app.URL, subID)
	if resp := doReq(t, http.MethodPost, joinURL, student, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("join: got %d", resp.StatusCode)
	}

	logURL := fmt.Sprintf("%s/stu/log/%d", app.URL, subID)
	resp := doReq(t, http.MethodGet, logURL, student, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("default log: got %d", resp.StatusCode)
	}
	var draft db.StudentLog
	decodeBody(t, resp, &draft)
	if draft.ID != 0 {
		t.Fatalf("draft id = %d, want unsaved draft", draft.ID)
	}
	if draft.Seat != 1 {
		t.Fatalf("draft seat = %d, want 1", draft.Seat)
	}

	submit := map[string]interface{}{
		"subcourse_id": subID, "room_id": draft.RoomID, "seat": draft.Seat,
		"lab_name": draft.LabName, "note": "measured the step response",
	}
	resp = doReq(t, http.MethodPost, app.URL+"/stu/log", student, submit)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: got %d", resp.StatusCode)
	}
	var saved db.StudentLog
	decodeBody(t, resp, &saved)
	if saved.ID == 0 {
		t.Fatal("submit did not persist")
	}

	// Reopening the form now returns the saved report.
	resp = doReq(t, http.MethodGet, logURL, student, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("default log after submit: got %d", resp.StatusCode)
	}
	var reopened db.StudentLog
	decodeBody(t, resp, &reopened)
	if reopened.ID != saved.ID {
		t.Fatalf("reopened id = %d, want %d", reopened.ID, saved.ID)
	}
}
