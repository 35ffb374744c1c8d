package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"labadmin/internal/auth"
	"labadmin/internal/booking"
	"labadmin/internal/config"
	"labadmin/internal/db"
	"labadmin/internal/enrollment"
	"labadmin/internal/forge"
	"labadmin/internal/perm"
	"labadmin/internal/studentlog"
)

type Server struct {
	cfg       config.Config
	store     *db.Store
	allocator *enrollment.Allocator
	booking   *booking.Checker
	logs      *studentlog.Synthesizer
	redis     *redis.Client
	forge     *forge.Client
}

func NewServer(cfg config.Config, store *db.Store, redisClient *redis.Client) *Server {
	var forgeClient *forge.Client
	if cfg.ForgeURL != "" {
		forgeClient = forge.NewClient(cfg.ForgeURL, cfg.ForgeKey)
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		allocator: enrollment.New(enrollment.NewPGBackend(store)),
		booking:   booking.NewChecker(store.Queries),
		logs:      studentlog.New(store.Queries),
		redis:     redisClient,
		forge:     forgeClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/greet", s.handleGreet)

	admin := perm.Admin
	staff := perm.Teacher | perm.Admin
	lab := perm.LabManager | perm.Admin
	member := perm.Student | perm.Teacher | perm.Admin

	// Accounts and semesters.
	r.With(s.authMiddleware, s.requirePermission(admin)).Get("/admin/users", s.handleListUsers)
	r.With(s.authMiddleware, s.requirePermission(admin)).Post("/admin/user", s.handleCreateUser)
	r.With(s.authMiddleware, s.requirePermission(admin)).Put("/admin/user/{userId}", s.handleUpdateUser)
	r.With(s.authMiddleware, s.requirePermission(admin)).Delete("/admin/user/{userId}", s.handleDeleteUser)

	r.With(s.authMiddleware).Get("/semesters", s.handleListSemesters)
	r.With(s.authMiddleware).Get("/semester/current", s.handleCurrentSemester)
	r.With(s.authMiddleware, s.requirePermission(admin)).Post("/admin/semester", s.handleCreateSemester)
	r.With(s.authMiddleware, s.requirePermission(admin)).Put("/admin/semester/{semesterId}", s.handleUpdateSemester)
	r.With(s.authMiddleware, s.requirePermission(admin)).Delete("/admin/semester/{semesterId}", s.handleDeleteSemester)

	// Courses and their materials.
	r.With(s.authMiddleware).Get("/courses", s.handleListCourses)
	r.With(s.authMiddleware).Get("/course/{courseId}", s.handleGetCourse)
	r.With(s.authMiddleware, s.requirePermission(admin)).Post("/course", s.handleCreateCourse)
	r.With(s.authMiddleware, s.requirePermission(staff)).Put("/course/{courseId}", s.handleUpdateCourse)
	r.With(s.authMiddleware, s.requirePermission(admin)).Delete("/course/{courseId}", s.handleDeleteCourse)

	r.With(s.authMiddleware).Get("/course/{courseId}/schedules", s.handleListSchedules)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/schedule", s.handleCreateSchedule)
	r.With(s.authMiddleware, s.requirePermission(staff)).Put("/schedule/{scheduleId}", s.handleUpdateSchedule)
	r.With(s.authMiddleware, s.requirePermission(staff)).Delete("/schedule/{scheduleId}", s.handleDeleteSchedule)

	r.With(s.authMiddleware).Get("/schedule/{scheduleId}/steps", s.handleListSubschedules)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/schedule/{scheduleId}/step", s.handleCreateSubschedule)
	r.With(s.authMiddleware, s.requirePermission(staff)).Put("/step/{stepId}", s.handleUpdateSubschedule)
	r.With(s.authMiddleware, s.requirePermission(staff)).Delete("/step/{stepId}", s.handleDeleteSubschedule)

	r.With(s.authMiddleware).Get("/course/{courseId}/files", s.handleListCourseFiles)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/course/{courseId}/file", s.handleCreateCourseFile)
	r.With(s.authMiddleware, s.requirePermission(staff)).Delete("/file/{fileId}", s.handleDeleteCourseFile)

	// Lab rooms.
	r.With(s.authMiddleware).Get("/labrooms", s.handleListLabrooms)
	r.With(s.authMiddleware, s.requirePermission(lab)).Post("/labroom", s.handleCreateLabroom)
	r.With(s.authMiddleware, s.requirePermission(lab)).Put("/labroom/{roomId}", s.handleUpdateLabroom)
	r.With(s.authMiddleware, s.requirePermission(lab)).Delete("/labroom/{roomId}", s.handleDeleteLabroom)

	// Lab groups.
	r.With(s.authMiddleware).Get("/course/{courseId}/subcourses", s.handleListSubcourses)
	r.With(s.authMiddleware).Get("/subcourse/{subcourseId}", s.handleGetSubcourse)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/subcourse", s.handleCreateSubcourse)
	r.With(s.authMiddleware, s.requirePermission(staff)).Put("/subcourse/{subcourseId}", s.handleUpdateSubcourse)
	r.With(s.authMiddleware, s.requirePermission(staff)).Delete("/subcourse/{subcourseId}", s.handleDeleteSubcourse)

	r.With(s.authMiddleware, s.requirePermission(member)).Get("/subcourse/{subcourseId}/group", s.handleListGroup)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/subcourse/{subcourseId}/student", s.handleForceAddStudent)
	r.With(s.authMiddleware, s.requirePermission(staff)).Delete("/subcourse/{subcourseId}/student/{stuId}", s.handleForceRemoveStudent)
	r.With(s.authMiddleware, s.requirePermission(staff)).Put("/subcourse/{subcourseId}/student/{stuId}/seat", s.handleStaffSetSeat)

	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Get("/stu/subcourses", s.handleStudentSubcourses)
	r.With(s.authMiddleware, s.requirePermission(perm.Teacher)).Get("/teacher/subcourses", s.handleTeacherSubcourses)
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Post("/stu/group/{subcourseId}", s.handleJoinGroup)
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Delete("/stu/group/{subcourseId}", s.handleLeaveGroup)
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Put("/stu/group/{subcourseId}/seat", s.handleSetSeat)

	// Lab reports and timelines.
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Get("/stu/log/{subcourseId}", s.handleDefaultLog)
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Post("/stu/log", s.handleSubmitLog)
	r.With(s.authMiddleware, s.requirePermission(perm.Student)).Get("/stu/logs/{subcourseId}", s.handleListOwnLogs)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/log/{logId}/confirm", s.handleConfirmLog)
	r.With(s.authMiddleware, s.requirePermission(staff)).Post("/log/force", s.handleForceLog)
	r.With(s.authMiddleware, s.requirePermission(staff)).Get("/labroom/{roomId}/logs", s.handleListRoomLogs)

	r.With(s.authMiddleware, s.requirePermission(member)).Post("/timeline", s.handleCreateTimeline)
	r.With(s.authMiddleware, s.requirePermission(member)).Get("/timeline/{stuId}/{scheduleId}", s.handleListTimelines)

	// Equipment.
	r.With(s.authMiddleware, s.requirePermission(lab)).Get("/equipments", s.handleListEquipments)
	r.With(s.authMiddleware, s.requirePermission(lab)).Post("/equipment", s.handleCreateEquipment)
	r.With(s.authMiddleware, s.requirePermission(lab)).Put("/equipment/{itemId}", s.handleUpdateEquipment)
	r.With(s.authMiddleware, s.requirePermission(lab)).Delete("/equipment/{itemId}", s.handleDeleteEquipment)
	r.With(s.authMiddleware, s.requirePermission(lab)).Post("/equipment/{itemId}/borrow", s.handleBorrowEquipment)
	r.With(s.authMiddleware, s.requirePermission(lab)).Post("/equipment/{itemId}/return", s.handleReturnEquipment)
	r.With(s.authMiddleware, s.requirePermission(lab)).Get("/equipment/{itemId}/history", s.handleListEquipmentHistory)

	// Meeting rooms and agendas.
	r.With(s.authMiddleware).Get("/meetingrooms", s.handleListMeetingRooms)
	r.With(s.authMiddleware, s.requirePermission(admin)).Post("/admin/meetingroom", s.handleCreateMeetingRoom)
	r.With(s.authMiddleware, s.requirePermission(admin)).Put("/admin/meetingroom/{roomId}", s.handleUpdateMeetingRoom)
	r.With(s.authMiddleware, s.requirePermission(admin)).Delete("/admin/meetingroom/{roomId}", s.handleDeleteMeetingRoom)

	r.With(s.authMiddleware).Get("/meetingroom/{roomId}/agendas", s.handleListAgendas)
	r.With(s.authMiddleware).Post("/agenda", s.handleCreateAgenda)
	r.With(s.authMiddleware).Put("/agenda/{agendaId}", s.handleUpdateAgenda)
	r.With(s.authMiddleware).Delete("/agenda/{agendaId}", s.handleDeleteAgenda)
	r.With(s.authMiddleware, s.requirePermission(perm.MeetingManager|perm.Admin)).Post("/agenda/{agendaId}/confirm", s.handleConfirmAgenda)

	// Forge accounts for the Linux course.
	r.With(s.authMiddleware, s.requirePermission(perm.LinuxCourse)).Post("/linux/gituser", s.handleCreateGitUser)
	r.With(s.authMiddleware, s.requirePermission(perm.LinuxCourse)).Patch("/linux/resetgituser", s.handleResetGitUser)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func (s *Server) requirePermission(mask perm.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil || !claims.Permission.Has(mask) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Login

type loginRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Permission  perm.Permission `json:"permission"`
}

// handleLogin exchanges the gateway token for an access token. The identity
// provider in front of this service has already verified the user, so the
// only check here is the shared secret. The linux-course bit is derived at
// issuance: enrollment in a Linux course this semester grants it for the
// lifetime of the token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token != s.cfg.LoginToken {
		writeError(w, http.StatusUnauthorized, "invalid_login_token")
		return
	}
	user, err := s.store.Queries.GetUser(r.Context(), req.UserID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		// Unknown users get a browse-only token. The gateway vouched for
		// them; they just have no role here yet.
		user = db.User{UserID: req.UserID, Permission: 0}
	}

	permission := perm.Permission(user.Permission)
	if permission.Has(perm.Student) {
		if semester, err := s.currentSemester(r.Context()); err == nil {
			linux, err := s.store.Queries.HasCourseEnrollmentWithPrefix(r.Context(), user.UserID, "Linux", semester.ID)
			if err == nil && linux {
				permission |= perm.LinuxCourse
			}
		}
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, auth.Claims{
		UserID:     user.UserID,
		Realname:   user.Username,
		Permission: permission,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		UserID:      user.UserID,
		Username:    user.Username,
		Permission:  permission,
	})
}

// handleLogout exists for clients that expect a logout endpoint. Tokens are
// not tracked server side and simply expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    claims.UserID,
		"realname":   claims.Realname,
		"permission": claims.Permission,
	})
}

const semesterCacheKey = "labadmin:semester:current"

// currentSemester resolves the semester covering today, via the cache when
// one is configured.
func (s *Server) currentSemester(ctx context.Context) (db.Semester, error) {
	const cacheKey = semesterCacheKey

	if s.redis != nil {
		if value, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var semester db.Semester
			if json.Unmarshal([]byte(value), &semester) == nil {
				return semester, nil
			}
		}
	}

	semester, err := s.store.Queries.GetCurrentSemester(ctx, time.Now().UTC())
	if err != nil {
		return db.Semester{}, err
	}
	if s.redis != nil {
		if data, err := json.Marshal(semester); err == nil {
			_ = s.redis.Set(ctx, cacheKey, data, s.cfg.SemesterCacheTTL).Err()
		}
	}
	return semester, nil
}

// invalidateSemesterCache drops the cached current semester after any
// semester mutation.
func (s *Server) invalidateSemesterCache(ctx context.Context) {
	if s.redis != nil {
		_ = s.redis.Del(ctx, semesterCacheKey).Err()
	}
}

// Helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	return parseID(chi.URLParam(r, name))
}
