package db

import (
	"context"
	"time"
)

const equipmentColumns = `id, name, serial, value, position, status, note, owner_id`

func scanEquipment(row scanner, e *Equipment) error {
	return row.Scan(&e.ID, &e.Name, &e.Serial, &e.Value, &e.Position,
		&e.Status, &e.Note, &e.OwnerID)
}

func (q *Queries) CreateEquipment(ctx context.Context, e Equipment) (Equipment, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO equipments (name, serial, value, position, status, note, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+equipmentColumns,
		e.Name, e.Serial, e.Value, e.Position, e.Status, e.Note, e.OwnerID)
	err := scanEquipment(row, &e)
	return e, err
}

// ListEquipments returns the items owned by a lab manager.
func (q *Queries) ListEquipments(ctx context.Context, ownerID string) ([]Equipment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+equipmentColumns+` FROM equipments WHERE owner_id = $1 ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Equipment
	for rows.Next() {
		var e Equipment
		if err := scanEquipment(rows, &e); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (q *Queries) GetEquipment(ctx context.Context, id int64) (Equipment, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipments WHERE id = $1`, id)
	var e Equipment
	err := scanEquipment(row, &e)
	return e, err
}

func (q *Queries) UpdateEquipment(ctx context.Context, e Equipment) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE equipments SET name = $2, serial = $3, value = $4, position = $5,
		        status = $6, note = $7, owner_id = $8
		 WHERE id = $1`,
		e.ID, e.Name, e.Serial, e.Value, e.Position, e.Status, e.Note, e.OwnerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteEquipment(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM equipments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) SetEquipmentStatus(ctx context.Context, id, status int64) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE equipments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Borrow histories

const historyColumns = `id, borrower, borrowed_date, telephone, note, returned_date, item_id`

func scanHistory(row scanner, h *EquipmentHistory) error {
	return row.Scan(&h.ID, &h.Borrower, &h.BorrowedDate, &h.Telephone,
		&h.Note, &h.ReturnedDate, &h.ItemID)
}

func (q *Queries) CreateEquipmentHistory(ctx context.Context, h EquipmentHistory) (EquipmentHistory, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO equipment_histories (borrower, borrowed_date, telephone, note, returned_date, item_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+historyColumns,
		h.Borrower, h.BorrowedDate, h.Telephone, h.Note, h.ReturnedDate, h.ItemID)
	err := scanHistory(row, &h)
	return h, err
}

func (q *Queries) ListEquipmentHistories(ctx context.Context, itemID int64) ([]EquipmentHistory, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+historyColumns+` FROM equipment_histories
		 WHERE item_id = $1 ORDER BY borrowed_date DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var histories []EquipmentHistory
	for rows.Next() {
		var h EquipmentHistory
		if err := scanHistory(rows, &h); err != nil {
			return nil, err
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

// CloseOpenEquipmentHistory stamps the outstanding borrow record for an item
// with the return date. Returns false when nothing was outstanding.
func (q *Queries) CloseOpenEquipmentHistory(ctx context.Context, itemID int64, returned time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE equipment_histories SET returned_date = $2
		 WHERE item_id = $1 AND returned_date IS NULL`, itemID, returned)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
