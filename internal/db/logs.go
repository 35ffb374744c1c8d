package db

import (
	"context"
	"time"
)

const studentLogColumns = `id, stu_id, stu_name, subcourse_id, room_id, seat,
	lab_name, note, tea_note, tea_name, fin_time, confirm`

func scanStudentLog(row scanner, l *StudentLog) error {
	return row.Scan(&l.ID, &l.StuID, &l.StuName, &l.SubcourseID, &l.RoomID,
		&l.Seat, &l.LabName, &l.Note, &l.TeaNote, &l.TeaName, &l.FinTime, &l.Confirm)
}

// GetRecentStudentLog returns the latest log for the student in the subcourse
// finished at or after the cutoff. A miss is pgx.ErrNoRows.
func (q *Queries) GetRecentStudentLog(ctx context.Context, stuID string, subcourseID int64, cutoff time.Time) (StudentLog, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+studentLogColumns+` FROM student_logs
		 WHERE stu_id = $1 AND subcourse_id = $2 AND fin_time >= $3
		 ORDER BY fin_time DESC LIMIT 1`,
		stuID, subcourseID, cutoff)
	var l StudentLog
	err := scanStudentLog(row, &l)
	return l, err
}

func (q *Queries) GetStudentLog(ctx context.Context, id int64) (StudentLog, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+studentLogColumns+` FROM student_logs WHERE id = $1`, id)
	var l StudentLog
	err := scanStudentLog(row, &l)
	return l, err
}

func (q *Queries) CreateStudentLog(ctx context.Context, l StudentLog) (StudentLog, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO student_logs (stu_id, stu_name, subcourse_id, room_id, seat,
		        lab_name, note, tea_note, tea_name, fin_time, confirm)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+studentLogColumns,
		l.StuID, l.StuName, l.SubcourseID, l.RoomID, l.Seat,
		l.LabName, l.Note, l.TeaNote, l.TeaName, l.FinTime, l.Confirm)
	err := scanStudentLog(row, &l)
	return l, err
}

// UpdateStudentLogNote rewrites the student-editable fields of an unconfirmed
// log. Confirmed logs are immutable to students.
func (q *Queries) UpdateStudentLogNote(ctx context.Context, id int64, seat int64, labName, note string, finTime time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE student_logs SET seat = $2, lab_name = $3, note = $4, fin_time = $5
		 WHERE id = $1 AND confirm = FALSE`,
		id, seat, labName, note, finTime)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ConfirmStudentLog records the teacher's remark and marks the log confirmed.
func (q *Queries) ConfirmStudentLog(ctx context.Context, id int64, teaNote, teaName string) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE student_logs SET tea_note = $2, tea_name = $3, confirm = TRUE WHERE id = $1`,
		id, teaNote, teaName)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ListStudentLogs(ctx context.Context, stuID string, subcourseID int64) ([]StudentLog, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+studentLogColumns+` FROM student_logs
		 WHERE stu_id = $1 AND subcourse_id = $2 ORDER BY fin_time`,
		stuID, subcourseID)
	if err != nil {
		return nil, err
	}
	return collectStudentLogs(rows)
}

// ListRoomLogs returns logs written in a room within the window, newest first.
// Used by teachers overseeing a lab session.
func (q *Queries) ListRoomLogs(ctx context.Context, roomID int64, since time.Time) ([]StudentLog, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+studentLogColumns+` FROM student_logs
		 WHERE room_id = $1 AND fin_time >= $2 ORDER BY fin_time DESC`,
		roomID, since)
	if err != nil {
		return nil, err
	}
	return collectStudentLogs(rows)
}

func collectStudentLogs(rows interface {
	scanner
	Next() bool
	Close()
	Err() error
}) ([]StudentLog, error) {
	defer rows.Close()
	var logs []StudentLog
	for rows.Next() {
		var l StudentLog
		if err := scanStudentLog(rows, &l); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Timelines

const timelineColumns = `id, stu_id, tea_id, schedule_id, subschedule, subcourse_id, note, notetype, created_at`

func scanTimeline(row scanner, t *StudentTimeline) error {
	return row.Scan(&t.ID, &t.StuID, &t.TeaID, &t.ScheduleID, &t.Subschedule,
		&t.SubcourseID, &t.Note, &t.Notetype, &t.CreatedAt)
}

func (q *Queries) CreateTimeline(ctx context.Context, t StudentTimeline) (StudentTimeline, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO student_timelines (stu_id, tea_id, schedule_id, subschedule,
		        subcourse_id, note, notetype, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+timelineColumns,
		t.StuID, t.TeaID, t.ScheduleID, t.Subschedule, t.SubcourseID,
		t.Note, t.Notetype, t.CreatedAt)
	err := scanTimeline(row, &t)
	return t, err
}

func (q *Queries) CountTimelines(ctx context.Context, stuID string, scheduleID int64) (int64, error) {
	row := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM student_timelines WHERE stu_id = $1 AND schedule_id = $2`,
		stuID, scheduleID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func (q *Queries) ListTimelines(ctx context.Context, stuID string, scheduleID int64) ([]StudentTimeline, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+timelineColumns+` FROM student_timelines
		 WHERE stu_id = $1 AND schedule_id = $2 ORDER BY created_at`,
		stuID, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var timelines []StudentTimeline
	for rows.Next() {
		var t StudentTimeline
		if err := scanTimeline(rows, &t); err != nil {
			return nil, err
		}
		timelines = append(timelines, t)
	}
	return timelines, rows.Err()
}
