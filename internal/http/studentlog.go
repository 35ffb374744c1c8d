package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"labadmin/internal/db"
	"labadmin/internal/perm"
	"labadmin/internal/studentlog"
)

func (s *Server) handleDefaultLog(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	log, err := s.logs.DefaultLog(r.Context(), claims.UserID, claims.Realname, subcourseID)
	if err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

type submitLogRequest struct {
	SubcourseID int64  `json:"subcourse_id"`
	RoomID      int64  `json:"room_id"`
	Seat        int64  `json:"seat"`
	LabName     string `json:"lab_name"`
	Note        string `json:"note"`
}

func (s *Server) handleSubmitLog(w http.ResponseWriter, r *http.Request) {
	var req submitLogRequest
	if err := decodeJSON(r, &req); err != nil || req.SubcourseID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	log, err := s.logs.Submit(r.Context(), claims.UserID, claims.Realname,
		req.SubcourseID, req.RoomID, req.Seat, req.LabName, req.Note)
	if err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleListOwnLogs(w http.ResponseWriter, r *http.Request) {
	subcourseID, ok := pathID(r, "subcourseId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	logs, err := s.store.Queries.ListStudentLogs(r.Context(), claims.UserID, subcourseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type confirmLogRequest struct {
	TeaNote string `json:"tea_note"`
}

func (s *Server) handleConfirmLog(w http.ResponseWriter, r *http.Request) {
	logID, ok := pathID(r, "logId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var req confirmLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	if err := s.logs.Confirm(r.Context(), logID, req.TeaNote, claims.Realname); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

type forceLogRequest struct {
	StuID       string `json:"stu_id"`
	StuName     string `json:"stu_name"`
	SubcourseID int64  `json:"subcourse_id"`
	RoomID      int64  `json:"room_id"`
	Seat        int64  `json:"seat"`
	LabName     string `json:"lab_name"`
	TeaNote     string `json:"tea_note"`
}

// handleForceLog lets a teacher file a report on a student's behalf, already
// confirmed. Used when a student cannot submit during the session.
func (s *Server) handleForceLog(w http.ResponseWriter, r *http.Request) {
	var req forceLogRequest
	if err := decodeJSON(r, &req); err != nil || req.StuID == "" || req.SubcourseID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	created, err := s.store.Queries.CreateStudentLog(r.Context(), db.StudentLog{
		StuID: req.StuID, StuName: req.StuName,
		SubcourseID: req.SubcourseID, RoomID: req.RoomID, Seat: req.Seat,
		LabName: req.LabName, TeaNote: req.TeaNote, TeaName: claims.Realname,
		FinTime: time.Now().UTC(), Confirm: true,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListRoomLogs serves the teacher's live view of a lab room: every
// report finished within the session window.
func (s *Server) handleListRoomLogs(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	since := time.Now().UTC().Add(-studentlog.RecentWindow)
	logs, err := s.store.Queries.ListRoomLogs(r.Context(), roomID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeLogError(w http.ResponseWriter, err error) {
	var opErr *studentlog.Error
	if !errors.As(err, &opErr) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	switch opErr.Code {
	case studentlog.ErrSubcourseNotFound, studentlog.ErrNoCurrentSemester, studentlog.ErrLogNotFound:
		writeError(w, http.StatusNotFound, opErr.Code)
	case studentlog.ErrNotEnrolled:
		writeError(w, http.StatusForbidden, opErr.Code)
	case studentlog.ErrLogConfirmed:
		writeError(w, http.StatusConflict, opErr.Code)
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

// Timelines

const timelineCap = 100

type timelineRequest struct {
	StuID       string `json:"stu_id"`
	ScheduleID  int64  `json:"schedule_id"`
	Subschedule string `json:"subschedule"`
	SubcourseID int64  `json:"subcourse_id"`
	Note        string `json:"note"`
	Notetype    int64  `json:"notetype"`
}

func (s *Server) handleCreateTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := decodeJSON(r, &req); err != nil || req.ScheduleID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())

	// Students write their own timeline; only teachers write remarks onto
	// another student's.
	stuID, teaID := claims.UserID, ""
	if req.StuID != "" && req.StuID != claims.UserID {
		if !claims.Permission.Has(perm.Teacher | perm.Admin) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		stuID, teaID = req.StuID, claims.UserID
	}

	count, err := s.store.Queries.CountTimelines(r.Context(), stuID, req.ScheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if count >= timelineCap {
		writeError(w, http.StatusConflict, "timeline_full")
		return
	}

	created, err := s.store.Queries.CreateTimeline(r.Context(), timelineFromRequest(req, stuID, teaID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func timelineFromRequest(req timelineRequest, stuID, teaID string) db.StudentTimeline {
	return db.StudentTimeline{
		StuID:       stuID,
		TeaID:       teaID,
		ScheduleID:  req.ScheduleID,
		Subschedule: req.Subschedule,
		SubcourseID: req.SubcourseID,
		Note:        req.Note,
		Notetype:    req.Notetype,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *Server) handleListTimelines(w http.ResponseWriter, r *http.Request) {
	stuID := chi.URLParam(r, "stuId")
	scheduleID, ok := pathID(r, "scheduleId")
	if stuID == "" || !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	if !claims.Permission.Has(perm.Teacher|perm.Admin) && stuID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	timelines, err := s.store.Queries.ListTimelines(r.Context(), stuID, scheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, timelines)
}
