package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"labadmin/internal/auth"
	"labadmin/internal/config"
	"labadmin/internal/perm"
)

func testServer() *Server {
	return &Server{cfg: config.Config{
		JWTSecret: "test-secret",
		JWTIssuer: "test-issuer",
		TokenTTL:  time.Minute,
	}}
}

func mustToken(t *testing.T, s *Server, userID string, permission perm.Permission) string {
	t.Helper()
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, auth.Claims{
		UserID:     userID,
		Realname:   "Test User",
		Permission: permission,
	})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func protected(s *Server, mask perm.Permission) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s.authMiddleware(s.requirePermission(mask)(ok))
}

func getWithToken(handler http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	s := testServer()
	handler := protected(s, perm.Admin)

	if code := getWithToken(handler, ""); code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d, want 401", code)
	}
	if code := getWithToken(handler, "not-a-jwt"); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d, want 401", code)
	}

	other := &Server{cfg: config.Config{JWTSecret: "other-secret", JWTIssuer: "test-issuer", TokenTTL: time.Minute}}
	if code := getWithToken(handler, mustToken(t, other, "u1", perm.Admin)); code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: got %d, want 401", code)
	}
}

func TestRequirePermissionMasks(t *testing.T) {
	s := testServer()
	staff := perm.Teacher | perm.Admin

	cases := []struct {
		name   string
		mask   perm.Permission
		holder perm.Permission
		want   int
	}{
		{"admin passes admin gate", perm.Admin, perm.Admin, http.StatusOK},
		{"student fails admin gate", perm.Admin, perm.Student, http.StatusForbidden},
		{"teacher passes staff gate", staff, perm.Teacher, http.StatusOK},
		{"admin passes staff gate", staff, perm.Admin, http.StatusOK},
		{"dual role passes staff gate", staff, perm.Teacher | perm.LabManager, http.StatusOK},
		{"dual role passes lab gate", perm.LabManager | perm.Admin, perm.Teacher | perm.LabManager, http.StatusOK},
		{"student fails staff gate", staff, perm.Student, http.StatusForbidden},
		{"meeting manager gate", perm.MeetingManager, perm.Student, http.StatusForbidden},
		{"admin passes meeting gate", perm.MeetingManager | perm.Admin, perm.Admin, http.StatusOK},
		{"linux gate needs linux bit", perm.LinuxCourse, perm.Student | perm.LinuxCourse, http.StatusOK},
	}
	for _, tc := range cases {
		handler := protected(s, tc.mask)
		token := mustToken(t, s, "u1", tc.holder)
		if code := getWithToken(handler, token); code != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, code, tc.want)
		}
	}
}

func TestTimelineWriteOntoOtherStudentNeedsTeacher(t *testing.T) {
	s := testServer()
	router := s.Router()

	body := `{"stu_id":"stu-2","schedule_id":1,"note":"late to session"}`
	req := httptest.NewRequest(http.MethodPost, "/timeline", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mustToken(t, s, "stu-1", perm.Student))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("student writing another student's timeline: got %d, want 403", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer abc":     "abc",
		"Basic abc":      "",
		"Bearer":         "",
		"Bearer  spaced": "spaced",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, ok := parseID("42"); !ok || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, ok := parseID(bad); ok {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}
