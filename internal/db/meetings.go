package db

import (
	"context"
	"time"
)

// Meeting rooms

func (q *Queries) CreateMeetingRoom(ctx context.Context, r MeetingRoom) (MeetingRoom, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO meeting_rooms (room, info) VALUES ($1, $2)
		 RETURNING id, room, info`,
		r.Room, r.Info)
	err := row.Scan(&r.ID, &r.Room, &r.Info)
	return r, err
}

func (q *Queries) ListMeetingRooms(ctx context.Context) ([]MeetingRoom, error) {
	rows, err := q.db.Query(ctx, `SELECT id, room, info FROM meeting_rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rooms []MeetingRoom
	for rows.Next() {
		var r MeetingRoom
		if err := rows.Scan(&r.ID, &r.Room, &r.Info); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (q *Queries) GetMeetingRoom(ctx context.Context, id int64) (MeetingRoom, error) {
	row := q.db.QueryRow(ctx, `SELECT id, room, info FROM meeting_rooms WHERE id = $1`, id)
	var r MeetingRoom
	err := row.Scan(&r.ID, &r.Room, &r.Info)
	return r, err
}

func (q *Queries) UpdateMeetingRoom(ctx context.Context, r MeetingRoom) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE meeting_rooms SET room = $2, info = $3 WHERE id = $1`,
		r.ID, r.Room, r.Info)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteMeetingRoom(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM meeting_rooms WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Meeting agendas

const agendaColumns = `id, title, userid, username, repeat, date, start_time, end_time, room_id, confirm`

func scanAgenda(row scanner, a *MeetingAgenda) error {
	return row.Scan(&a.ID, &a.Title, &a.UserID, &a.Username, &a.Repeat,
		&a.Date, &a.StartTime, &a.EndTime, &a.RoomID, &a.Confirm)
}

func (q *Queries) CreateMeetingAgenda(ctx context.Context, a MeetingAgenda) (MeetingAgenda, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO meeting_agendas (title, userid, username, repeat, date,
		        start_time, end_time, room_id, confirm)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+agendaColumns,
		a.Title, a.UserID, a.Username, a.Repeat, a.Date,
		a.StartTime, a.EndTime, a.RoomID, a.Confirm)
	err := scanAgenda(row, &a)
	return a, err
}

func (q *Queries) GetMeetingAgenda(ctx context.Context, id int64) (MeetingAgenda, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+agendaColumns+` FROM meeting_agendas WHERE id = $1`, id)
	var a MeetingAgenda
	err := scanAgenda(row, &a)
	return a, err
}

// ListAgendasByRoom returns every agenda booked against a room, including
// unconfirmed ones. Conflict checks run over this full set so a pending
// booking still holds its slot.
func (q *Queries) ListAgendasByRoom(ctx context.Context, roomID int64) ([]MeetingAgenda, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+agendaColumns+` FROM meeting_agendas WHERE room_id = $1 ORDER BY id`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var agendas []MeetingAgenda
	for rows.Next() {
		var a MeetingAgenda
		if err := scanAgenda(rows, &a); err != nil {
			return nil, err
		}
		agendas = append(agendas, a)
	}
	return agendas, rows.Err()
}

func (q *Queries) UpdateMeetingAgenda(ctx context.Context, a MeetingAgenda) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE meeting_agendas SET title = $2, repeat = $3, date = $4,
		        start_time = $5, end_time = $6, room_id = $7, confirm = $8
		 WHERE id = $1`,
		a.ID, a.Title, a.Repeat, a.Date, a.StartTime, a.EndTime, a.RoomID, a.Confirm)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ConfirmMeetingAgenda(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE meeting_agendas SET confirm = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteMeetingAgenda(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM meeting_agendas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpiredUnconfirmedAgendas removes one-off agendas whose date has
// passed without confirmation. Recurring agendas are never swept.
func (q *Queries) DeleteExpiredUnconfirmedAgendas(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM meeting_agendas
		 WHERE repeat = FALSE AND confirm = FALSE AND date < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
