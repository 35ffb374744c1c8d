package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"labadmin/internal/db"
	"labadmin/internal/perm"
)

// Users

type userRequest struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Permission int64  `json:"permission"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Queries.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user := db.User{UserID: req.UserID, Username: req.Username, Permission: req.Permission}
	if err := s.store.Queries.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user := db.User{
		UserID:     chi.URLParam(r, "userId"),
		Username:   req.Username,
		Permission: req.Permission,
	}
	ok, err := s.store.Queries.UpdateUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.Queries.DeleteUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Semesters

type semesterRequest struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (req semesterRequest) parse() (db.Semester, error) {
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		return db.Semester{}, err
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		return db.Semester{}, err
	}
	if req.Name == "" || end.Before(start) {
		return db.Semester{}, errors.New("invalid semester")
	}
	return db.Semester{Name: req.Name, Start: start, End: end}, nil
}

func (s *Server) handleListSemesters(w http.ResponseWriter, r *http.Request) {
	semesters, err := s.store.Queries.ListSemesters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, semesters)
}

func (s *Server) handleCurrentSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := s.currentSemester(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no_current_semester")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, semester)
}

func (s *Server) handleCreateSemester(w http.ResponseWriter, r *http.Request) {
	var req semesterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	semester, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateSemester(r.Context(), semester)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.invalidateSemesterCache(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSemester(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "semesterId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var req semesterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	semester, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	semester.ID = id
	updated, err := s.store.Queries.UpdateSemester(r.Context(), semester)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "semester_not_found")
		return
	}
	s.invalidateSemesterCache(r.Context())
	writeJSON(w, http.StatusOK, semester)
}

func (s *Server) handleDeleteSemester(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "semesterId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deleted, err := s.store.Queries.DeleteSemester(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "semester_not_found")
		return
	}
	s.invalidateSemesterCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Courses

// courseAccess loads the course and decides whether claims may manage it.
// A missing course reports not found before any permission verdict, so a
// teacher probing another teacher's ids learns nothing extra.
func (s *Server) courseAccess(r *http.Request, courseID int64) (db.Course, int, string) {
	claims := claimsFromContext(r.Context())
	course, err := s.store.Queries.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Course{}, http.StatusNotFound, "course_not_found"
		}
		return db.Course{}, http.StatusInternalServerError, "server_error"
	}
	if claims.Permission.Has(perm.Admin) {
		return course, 0, ""
	}
	if course.TeaID != claims.UserID {
		return db.Course{}, http.StatusForbidden, "forbidden"
	}
	return course, 0, ""
}

type courseRequest struct {
	Name    string `json:"name"`
	Ename   string `json:"ename"`
	Code    string `json:"code"`
	TeaID   string `json:"tea_id"`
	TeaName string `json:"tea_name"`
	Intro   string `json:"intro"`
	Mailbox string `json:"mailbox"`
	Term    int64  `json:"term"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.Queries.ListCourses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	course, err := s.store.Queries.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "course_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || req.TeaID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateCourse(r.Context(), db.Course{
		Name: req.Name, Ename: req.Ename, Code: req.Code,
		TeaID: req.TeaID, TeaName: req.TeaName,
		Intro: req.Intro, Mailbox: req.Mailbox, Term: req.Term,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	course, status, code := s.courseAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	var req courseRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	// Only admins may hand a course to another teacher.
	teaID, teaName := req.TeaID, req.TeaName
	if !claims.Permission.Has(perm.Admin) {
		teaID, teaName = course.TeaID, course.TeaName
	}
	updated := db.Course{
		ID: id, Name: req.Name, Ename: req.Ename, Code: req.Code,
		TeaID: teaID, TeaName: teaName,
		Intro: req.Intro, Mailbox: req.Mailbox, Term: req.Term,
	}
	if _, err := s.store.Queries.UpdateCourse(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deleted, err := s.store.Queries.DeleteCourse(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "course_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Course schedules

type scheduleRequest struct {
	Week        int64  `json:"week"`
	Name        string `json:"name"`
	Requirement string `json:"requirement"`
	CourseID    int64  `json:"course_id"`
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	schedules, err := s.store.Queries.ListSchedules(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || req.Week < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.courseAccess(r, req.CourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	created, err := s.store.Queries.CreateSchedule(r.Context(), db.CourseSchedule{
		Week: req.Week, Name: req.Name, Requirement: req.Requirement, CourseID: req.CourseID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) scheduleAccess(r *http.Request, scheduleID int64) (db.CourseSchedule, int, string) {
	schedule, err := s.store.Queries.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CourseSchedule{}, http.StatusNotFound, "schedule_not_found"
		}
		return db.CourseSchedule{}, http.StatusInternalServerError, "server_error"
	}
	if _, status, code := s.courseAccess(r, schedule.CourseID); status != 0 {
		return db.CourseSchedule{}, status, code
	}
	return schedule, 0, ""
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "scheduleId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	schedule, status, code := s.scheduleAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || req.Week < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.CourseSchedule{
		ID: id, Week: req.Week, Name: req.Name,
		Requirement: req.Requirement, CourseID: schedule.CourseID,
	}
	if _, err := s.store.Queries.UpdateSchedule(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "scheduleId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.scheduleAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Subschedules

type subscheduleRequest struct {
	Step  int64  `json:"step"`
	Title string `json:"title"`
}

func (s *Server) handleListSubschedules(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := pathID(r, "scheduleId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	subs, err := s.store.Queries.ListSubschedules(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateSubschedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := pathID(r, "scheduleId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.scheduleAccess(r, scheduleID); status != 0 {
		writeError(w, status, code)
		return
	}
	var req subscheduleRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateSubschedule(r.Context(), db.SubSchedule{
		ScheduleID: scheduleID, Step: req.Step, Title: req.Title,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSubschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "stepId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	sub, err := s.store.Queries.GetSubschedule(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "step_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if _, status, code := s.scheduleAccess(r, sub.ScheduleID); status != 0 {
		writeError(w, status, code)
		return
	}
	var req subscheduleRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.SubSchedule{ID: id, ScheduleID: sub.ScheduleID, Step: req.Step, Title: req.Title}
	if _, err := s.store.Queries.UpdateSubschedule(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSubschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "stepId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	sub, err := s.store.Queries.GetSubschedule(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "step_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if _, status, code := s.scheduleAccess(r, sub.ScheduleID); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteSubschedule(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Course files

type courseFileRequest struct {
	Fname string `json:"fname"`
	Finfo string `json:"finfo"`
}

func (s *Server) handleListCourseFiles(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	files, err := s.store.Queries.ListCourseFiles(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleCreateCourseFile(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.courseAccess(r, courseID); status != 0 {
		writeError(w, status, code)
		return
	}
	var req courseFileRequest
	if err := decodeJSON(r, &req); err != nil || req.Fname == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateCourseFile(r.Context(), db.CourseFile{
		Fname: req.Fname, Finfo: req.Finfo, CourseID: courseID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteCourseFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "fileId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	file, err := s.store.Queries.GetCourseFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "file_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if _, status, code := s.courseAccess(r, file.CourseID); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteCourseFile(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Lab rooms

type labroomRequest struct {
	Room    string `json:"room"`
	Name    string `json:"name"`
	Manager string `json:"manager"`
	TeaID   string `json:"tea_id"`
}

func (s *Server) handleListLabrooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.Queries.ListLabrooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleCreateLabroom(w http.ResponseWriter, r *http.Request) {
	var req labroomRequest
	if err := decodeJSON(r, &req); err != nil || req.Room == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateLabroom(r.Context(), db.Labroom{
		Room: req.Room, Name: req.Name, Manager: req.Manager, TeaID: req.TeaID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateLabroom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var req labroomRequest
	if err := decodeJSON(r, &req); err != nil || req.Room == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.Labroom{ID: id, Room: req.Room, Name: req.Name, Manager: req.Manager, TeaID: req.TeaID}
	ok, err := s.store.Queries.UpdateLabroom(r.Context(), updated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "labroom_not_found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteLabroom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deleted, err := s.store.Queries.DeleteLabroom(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "labroom_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
