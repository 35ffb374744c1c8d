package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"labadmin/internal/db"
	"labadmin/internal/enrollment"
	"labadmin/internal/perm"
)

// Subcourses

type subcourseRequest struct {
	Weekday  int64  `json:"weekday"`
	RoomID   int64  `json:"room_id"`
	TeaName  string `json:"tea_name"`
	TeaID    string `json:"tea_id"`
	YearID   int64  `json:"year_id"`
	StuLimit int64  `json:"stu_limit"`
	CourseID int64  `json:"course_id"`
	LagWeek  int64  `json:"lag_week"`
}

func (s *Server) handleListSubcourses(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var semesterID *int64
	if raw := r.URL.Query().Get("semester"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		semesterID = &id
	}
	subcourses, err := s.store.Queries.ListSubcourses(r.Context(), courseID, semesterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// Teacher ids stay internal; students see names only.
	claims := claimsFromContext(r.Context())
	if !claims.Permission.Has(perm.Teacher | perm.Admin) {
		for i := range subcourses {
			subcourses[i].TeaID = ""
		}
	}
	writeJSON(w, http.StatusOK, subcourses)
}

func (s *Server) handleGetSubcourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	detail, err := s.store.Queries.GetSubcourseDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "subcourse_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	claims := claimsFromContext(r.Context())
	if !claims.Permission.Has(perm.Teacher | perm.Admin) {
		detail.TeaID = ""
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateSubcourse(w http.ResponseWriter, r *http.Request) {
	var req subcourseRequest
	if err := decodeJSON(r, &req); err != nil || req.StuLimit < 1 || req.Weekday < 0 || req.Weekday > 6 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.courseAccess(r, req.CourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	created, err := s.store.Queries.CreateSubcourse(r.Context(), db.Subcourse{
		Weekday: req.Weekday, RoomID: req.RoomID, TeaName: req.TeaName, TeaID: req.TeaID,
		YearID: req.YearID, StuLimit: req.StuLimit, CourseID: req.CourseID, LagWeek: req.LagWeek,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) subcourseAccess(r *http.Request, subcourseID int64) (db.Subcourse, int, string) {
	sub, err := s.store.Queries.GetSubcourse(r.Context(), subcourseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Subcourse{}, http.StatusNotFound, "subcourse_not_found"
		}
		return db.Subcourse{}, http.StatusInternalServerError, "server_error"
	}
	if _, status, code := s.courseAccess(r, sub.CourseID); status != 0 {
		return db.Subcourse{}, status, code
	}
	return sub, 0, ""
}

func (s *Server) handleUpdateSubcourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	sub, status, code := s.subcourseAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	var req subcourseRequest
	if err := decodeJSON(r, &req); err != nil || req.StuLimit < 1 || req.Weekday < 0 || req.Weekday > 6 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.Subcourse{
		ID: id, Weekday: req.Weekday, RoomID: req.RoomID,
		TeaName: req.TeaName, TeaID: req.TeaID, YearID: req.YearID,
		StuLimit: req.StuLimit, CourseID: sub.CourseID, LagWeek: req.LagWeek,
	}
	if _, err := s.store.Queries.UpdateSubcourse(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSubcourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.subcourseAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteSubcourse(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStudentSubcourses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	semester, err := s.currentSemester(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no_current_semester")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	details, err := s.store.Queries.ListStudentSubcourses(r.Context(), claims.UserID, semester.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleTeacherSubcourses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	semester, err := s.currentSemester(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no_current_semester")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	details, err := s.store.Queries.ListTeacherSubcourses(r.Context(), claims.UserID, semester.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Lab groups

func (s *Server) handleListGroup(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	members, err := s.allocator.Roster(r.Context(), subcourseID)
	if err != nil {
		writeAllocatorError(w, err)
		return
	}
	if members == nil {
		members = []db.GroupMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	member, err := s.allocator.Join(r.Context(), subcourseID, claims.UserID, claims.Realname)
	if err != nil {
		groupJoinTotal.WithLabelValues(joinOutcome(err)).Inc()
		writeAllocatorError(w, err)
		return
	}
	groupJoinTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, member)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	if err := s.allocator.Leave(r.Context(), subcourseID, claims.UserID); err != nil {
		writeAllocatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type setSeatRequest struct {
	Seat int64 `json:"seat"`
}

func (s *Server) handleSetSeat(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var req setSeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	if err := s.allocator.SetSeat(r.Context(), subcourseID, claims.UserID, req.Seat); err != nil {
		writeAllocatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type forceAddRequest struct {
	StuID   string `json:"stu_id"`
	StuName string `json:"stu_name"`
}

// handleForceAddStudent lets the course's teacher place a student directly.
// The capacity rule applies to teachers too.
func (s *Server) handleForceAddStudent(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.subcourseAccess(r, subcourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	var req forceAddRequest
	if err := decodeJSON(r, &req); err != nil || req.StuID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	member, err := s.allocator.Join(r.Context(), subcourseID, req.StuID, req.StuName)
	if err != nil {
		groupJoinTotal.WithLabelValues(joinOutcome(err)).Inc()
		writeAllocatorError(w, err)
		return
	}
	groupJoinTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, member)
}

// handleStaffSetSeat reassigns a student's seat on the teacher's authority.
// Seat uniqueness within the group is enforced the same way as for
// self-service moves.
func (s *Server) handleStaffSetSeat(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.subcourseAccess(r, subcourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	stuID := chi.URLParam(r, "stuId")
	var req setSeatRequest
	if err := decodeJSON(r, &req); err != nil || stuID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.allocator.SetSeat(r.Context(), subcourseID, stuID, req.Seat); err != nil {
		writeAllocatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleForceRemoveStudent(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.subcourseAccess(r, subcourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	stuID := chi.URLParam(r, "stuId")
	if stuID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.allocator.Leave(r.Context(), subcourseID, stuID); err != nil {
		writeAllocatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func writeAllocatorError(w http.ResponseWriter, err error) {
	var opErr *enrollment.Error
	if !errors.As(err, &opErr) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	switch opErr.Code {
	case enrollment.ErrSubcourseNotFound:
		writeError(w, http.StatusNotFound, opErr.Code)
	case enrollment.ErrCapacityExceeded, enrollment.ErrSeatTaken:
		writeError(w, http.StatusConflict, opErr.Code)
	case enrollment.ErrInvalidSeat:
		writeError(w, http.StatusBadRequest, opErr.Code)
	case enrollment.ErrNotEnrolled:
		writeError(w, http.StatusNotFound, opErr.Code)
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

func joinOutcome(err error) string {
	var opErr *enrollment.Error
	if errors.As(err, &opErr) && opErr.Code == enrollment.ErrCapacityExceeded {
		return "full"
	}
	return "error"
}
