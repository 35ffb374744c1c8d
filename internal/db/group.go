package db

import "context"

// ListGroup returns the members of a lab group ordered by seat.
func (q *Queries) ListGroup(ctx context.Context, subcourseID int64) ([]GroupMember, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, stu_id, stu_name, seat, subcourse_id FROM students
		 WHERE subcourse_id = $1 ORDER BY seat`, subcourseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.ID, &m.StuID, &m.StuName, &m.Seat, &m.SubcourseID); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (q *Queries) GetMembership(ctx context.Context, subcourseID int64, stuID string) (GroupMember, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, stu_id, stu_name, seat, subcourse_id FROM students
		 WHERE subcourse_id = $1 AND stu_id = $2`, subcourseID, stuID)
	var m GroupMember
	err := row.Scan(&m.ID, &m.StuID, &m.StuName, &m.Seat, &m.SubcourseID)
	return m, err
}

func (q *Queries) GetMembershipByID(ctx context.Context, id int64) (GroupMember, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, stu_id, stu_name, seat, subcourse_id FROM students WHERE id = $1`, id)
	var m GroupMember
	err := row.Scan(&m.ID, &m.StuID, &m.StuName, &m.Seat, &m.SubcourseID)
	return m, err
}

// LockSubcourseLimit locks the subcourse row for the rest of the transaction
// and returns its seat limit. Callers outside a transaction get no locking
// benefit, so this belongs inside WithTx.
func (q *Queries) LockSubcourseLimit(ctx context.Context, subcourseID int64) (int64, error) {
	row := q.db.QueryRow(ctx,
		`SELECT stu_limit FROM subcourses WHERE id = $1 FOR UPDATE`, subcourseID)
	var limit int64
	err := row.Scan(&limit)
	return limit, err
}

func (q *Queries) CountMembers(ctx context.Context, subcourseID int64) (int64, error) {
	row := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE subcourse_id = $1`, subcourseID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// InsertMember assigns the next seat number after the current maximum.
func (q *Queries) InsertMember(ctx context.Context, subcourseID int64, stuID, stuName string) (GroupMember, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO students (stu_id, stu_name, seat, subcourse_id)
		 SELECT $2, $3, COALESCE(MAX(seat), 0) + 1, $1
		 FROM students WHERE subcourse_id = $1
		 RETURNING id, stu_id, stu_name, seat, subcourse_id`,
		subcourseID, stuID, stuName)
	var m GroupMember
	err := row.Scan(&m.ID, &m.StuID, &m.StuName, &m.Seat, &m.SubcourseID)
	return m, err
}

func (q *Queries) UpdateMemberSeat(ctx context.Context, subcourseID int64, stuID string, seat int64) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE students SET seat = $3 WHERE subcourse_id = $1 AND stu_id = $2`,
		subcourseID, stuID, seat)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteMembership(ctx context.Context, subcourseID int64, stuID string) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM students WHERE subcourse_id = $1 AND stu_id = $2`,
		subcourseID, stuID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
