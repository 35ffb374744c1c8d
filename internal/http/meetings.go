package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"labadmin/internal/booking"
	"labadmin/internal/db"
	"labadmin/internal/perm"
)

// Meeting rooms

type meetingRoomRequest struct {
	Room string `json:"room"`
	Info string `json:"info"`
}

func (s *Server) handleListMeetingRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.Queries.ListMeetingRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleCreateMeetingRoom(w http.ResponseWriter, r *http.Request) {
	var req meetingRoomRequest
	if err := decodeJSON(r, &req); err != nil || req.Room == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.store.Queries.CreateMeetingRoom(r.Context(), db.MeetingRoom{Room: req.Room, Info: req.Info})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMeetingRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var req meetingRoomRequest
	if err := decodeJSON(r, &req); err != nil || req.Room == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.MeetingRoom{ID: id, Room: req.Room, Info: req.Info}
	ok, err := s.store.Queries.UpdateMeetingRoom(r.Context(), updated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "meeting_room_not_found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMeetingRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deleted, err := s.store.Queries.DeleteMeetingRoom(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "meeting_room_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Agendas

type agendaRequest struct {
	Title     string `json:"title"`
	Repeat    bool   `json:"repeat"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	RoomID    int64  `json:"room_id"`
	Confirm   bool   `json:"confirm"`
}

type agendaConflictResponse struct {
	Error    string           `json:"error"`
	Conflict db.MeetingAgenda `json:"conflict"`
}

func (s *Server) handleListAgendas(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	agendas, err := s.store.Queries.ListAgendasByRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if agendas == nil {
		agendas = []db.MeetingAgenda{}
	}
	writeJSON(w, http.StatusOK, agendas)
}

func (s *Server) handleCreateAgenda(w http.ResponseWriter, r *http.Request) {
	var req agendaRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, err := s.store.Queries.GetMeetingRoom(r.Context(), req.RoomID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "meeting_room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	conflict, err := s.booking.Check(r.Context(), booking.Request{
		RoomID: req.RoomID, Repeat: req.Repeat, Date: date,
		Start: req.StartTime, End: req.EndTime,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	if conflict != nil {
		agendaConflictTotal.Inc()
		writeJSON(w, http.StatusConflict, agendaConflictResponse{Error: "conflict", Conflict: *conflict})
		return
	}

	claims := claimsFromContext(r.Context())
	// A meeting manager's booking is confirmed on the spot; everyone else's
	// starts out pending.
	confirm := claims.Permission.Has(perm.MeetingManager | perm.Admin)
	created, err := s.store.Queries.CreateMeetingAgenda(r.Context(), db.MeetingAgenda{
		Title: req.Title, UserID: claims.UserID, Username: claims.Realname,
		Repeat: req.Repeat, Date: date, StartTime: req.StartTime, EndTime: req.EndTime,
		RoomID: req.RoomID, Confirm: confirm,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// agendaAccess loads the agenda and checks that claims may modify it.
// Confirmation is a transition into a protected state: the creator may edit
// or cancel only while the booking is still pending, after which managers
// and admins alone may touch it.
func (s *Server) agendaAccess(r *http.Request, agendaID int64) (db.MeetingAgenda, int, string) {
	claims := claimsFromContext(r.Context())
	agenda, err := s.store.Queries.GetMeetingAgenda(r.Context(), agendaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.MeetingAgenda{}, http.StatusNotFound, "agenda_not_found"
		}
		return db.MeetingAgenda{}, http.StatusInternalServerError, "server_error"
	}
	if claims.Permission.Has(perm.Admin | perm.MeetingManager) {
		return agenda, 0, ""
	}
	if !agenda.Confirm && agenda.UserID == claims.UserID {
		return agenda, 0, ""
	}
	return db.MeetingAgenda{}, http.StatusForbidden, "forbidden"
}

func (s *Server) handleUpdateAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "agendaId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	agenda, status, code := s.agendaAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	var req agendaRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	conflict, err := s.booking.Check(r.Context(), booking.Request{
		ID: id, RoomID: req.RoomID, Repeat: req.Repeat, Date: date,
		Start: req.StartTime, End: req.EndTime,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	if conflict != nil {
		agendaConflictTotal.Inc()
		writeJSON(w, http.StatusConflict, agendaConflictResponse{Error: "conflict", Conflict: *conflict})
		return
	}

	claims := claimsFromContext(r.Context())
	confirm := claims.Permission.Has(perm.MeetingManager | perm.Admin)
	updated := db.MeetingAgenda{
		ID: id, Title: req.Title, UserID: agenda.UserID, Username: agenda.Username,
		Repeat: req.Repeat, Date: date, StartTime: req.StartTime, EndTime: req.EndTime,
		RoomID: req.RoomID, Confirm: confirm,
	}
	if _, err := s.store.Queries.UpdateMeetingAgenda(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "agendaId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.agendaAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteMeetingAgenda(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleConfirmAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "agendaId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	confirmed, err := s.store.Queries.ConfirmMeetingAgenda(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !confirmed {
		writeError(w, http.StatusNotFound, "agenda_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func writeBookingError(w http.ResponseWriter, err error) {
	var opErr *booking.Error
	if !errors.As(err, &opErr) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	switch opErr.Code {
	case booking.ErrInvalidTime, booking.ErrInvalidRange:
		writeError(w, http.StatusBadRequest, opErr.Code)
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}
