package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"labadmin/internal/db"
)

// Equipment status values.
const (
	equipmentAvailable int64 = 0
	equipmentBorrowed  int64 = 1
)

type equipmentRequest struct {
	Name     string `json:"name"`
	Serial   string `json:"serial"`
	Value    int64  `json:"value"`
	Position string `json:"position"`
	Status   int64  `json:"status"`
	Note     string `json:"note"`
}

func (s *Server) handleListEquipments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	items, err := s.store.Queries.ListEquipments(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if items == nil {
		items = []db.Equipment{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims := claimsFromContext(r.Context())
	created, err := s.store.Queries.CreateEquipment(r.Context(), db.Equipment{
		Name: req.Name, Serial: req.Serial, Value: req.Value,
		Position: req.Position, Status: req.Status, Note: req.Note,
		OwnerID: claims.UserID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// equipmentAccess loads the item and checks ownership. Equipment custody is
// strictly per owner; there is no admin or teacher override.
func (s *Server) equipmentAccess(r *http.Request, itemID int64) (db.Equipment, int, string) {
	claims := claimsFromContext(r.Context())
	item, err := s.store.Queries.GetEquipment(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Equipment{}, http.StatusNotFound, "equipment_not_found"
		}
		return db.Equipment{}, http.StatusInternalServerError, "server_error"
	}
	if item.OwnerID != claims.UserID {
		return db.Equipment{}, http.StatusForbidden, "forbidden"
	}
	return item, 0, ""
}

func (s *Server) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	item, status, code := s.equipmentAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated := db.Equipment{
		ID: id, Name: req.Name, Serial: req.Serial, Value: req.Value,
		Position: req.Position, Status: req.Status, Note: req.Note,
		OwnerID: item.OwnerID,
	}
	if _, err := s.store.Queries.UpdateEquipment(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.equipmentAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	if _, err := s.store.Queries.DeleteEquipment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type borrowRequest struct {
	Borrower  string `json:"borrower"`
	Telephone string `json:"telephone"`
	Note      string `json:"note"`
}

func (s *Server) handleBorrowEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	item, status, code := s.equipmentAccess(r, id)
	if status != 0 {
		writeError(w, status, code)
		return
	}
	if item.Status == equipmentBorrowed {
		writeError(w, http.StatusConflict, "equipment_borrowed")
		return
	}
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil || req.Borrower == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	history, err := s.store.Queries.CreateEquipmentHistory(r.Context(), db.EquipmentHistory{
		Borrower: req.Borrower, BorrowedDate: time.Now().UTC(),
		Telephone: req.Telephone, Note: req.Note, ItemID: id,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if _, err := s.store.Queries.SetEquipmentStatus(r.Context(), id, equipmentBorrowed); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, history)
}

func (s *Server) handleReturnEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.equipmentAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	closed, err := s.store.Queries.CloseOpenEquipmentHistory(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !closed {
		writeError(w, http.StatusConflict, "equipment_not_borrowed")
		return
	}
	if _, err := s.store.Queries.SetEquipmentStatus(r.Context(), id, equipmentAvailable); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

func (s *Server) handleListEquipmentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, status, code := s.equipmentAccess(r, id); status != 0 {
		writeError(w, status, code)
		return
	}
	histories, err := s.store.Queries.ListEquipmentHistories(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if histories == nil {
		histories = []db.EquipmentHistory{}
	}
	writeJSON(w, http.StatusOK, histories)
}
