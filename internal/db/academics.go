package db

import (
	"context"
	"time"
)

// Semesters

func (q *Queries) CreateSemester(ctx context.Context, s Semester) (Semester, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO semesters (name, start_date, end_date) VALUES ($1, $2, $3)
		 RETURNING id, name, start_date, end_date`,
		s.Name, s.Start, s.End)
	err := row.Scan(&s.ID, &s.Name, &s.Start, &s.End)
	return s, err
}

func (q *Queries) ListSemesters(ctx context.Context) ([]Semester, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, start_date, end_date FROM semesters ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var semesters []Semester
	for rows.Next() {
		var s Semester
		if err := rows.Scan(&s.ID, &s.Name, &s.Start, &s.End); err != nil {
			return nil, err
		}
		semesters = append(semesters, s)
	}
	return semesters, rows.Err()
}

func (q *Queries) GetSemester(ctx context.Context, id int64) (Semester, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, name, start_date, end_date FROM semesters WHERE id = $1`, id)
	var s Semester
	err := row.Scan(&s.ID, &s.Name, &s.Start, &s.End)
	return s, err
}

// GetCurrentSemester returns the semester whose date range covers the given
// day. Overlapping ranges are a data-entry problem, not something enforced
// here; the first match wins.
func (q *Queries) GetCurrentSemester(ctx context.Context, today time.Time) (Semester, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, name, start_date, end_date FROM semesters
		 WHERE start_date <= $1 AND end_date >= $1
		 ORDER BY id LIMIT 1`, today)
	var s Semester
	err := row.Scan(&s.ID, &s.Name, &s.Start, &s.End)
	return s, err
}

func (q *Queries) UpdateSemester(ctx context.Context, s Semester) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE semesters SET name = $2, start_date = $3, end_date = $4 WHERE id = $1`,
		s.ID, s.Name, s.Start, s.End)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteSemester(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM semesters WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Courses

func (q *Queries) CreateCourse(ctx context.Context, c Course) (Course, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO courses (name, ename, code, tea_id, tea_name, intro, mailbox, term)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, name, ename, code, tea_id, tea_name, intro, mailbox, term`,
		c.Name, c.Ename, c.Code, c.TeaID, c.TeaName, c.Intro, c.Mailbox, c.Term)
	err := scanCourse(row, &c)
	return c, err
}

func (q *Queries) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, ename, code, tea_id, tea_name, intro, mailbox, term
		 FROM courses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []Course
	for rows.Next() {
		var c Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (q *Queries) GetCourse(ctx context.Context, id int64) (Course, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, name, ename, code, tea_id, tea_name, intro, mailbox, term
		 FROM courses WHERE id = $1`, id)
	var c Course
	err := scanCourse(row, &c)
	return c, err
}

func (q *Queries) UpdateCourse(ctx context.Context, c Course) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE courses SET name = $2, ename = $3, code = $4, tea_id = $5,
		        tea_name = $6, intro = $7, mailbox = $8, term = $9
		 WHERE id = $1`,
		c.ID, c.Name, c.Ename, c.Code, c.TeaID, c.TeaName, c.Intro, c.Mailbox, c.Term)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCourse(row scanner, c *Course) error {
	return row.Scan(&c.ID, &c.Name, &c.Ename, &c.Code, &c.TeaID, &c.TeaName,
		&c.Intro, &c.Mailbox, &c.Term)
}

// Labrooms

func (q *Queries) CreateLabroom(ctx context.Context, l Labroom) (Labroom, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO labrooms (room, name, manager, tea_id) VALUES ($1, $2, $3, $4)
		 RETURNING id, room, name, manager, tea_id`,
		l.Room, l.Name, l.Manager, l.TeaID)
	err := row.Scan(&l.ID, &l.Room, &l.Name, &l.Manager, &l.TeaID)
	return l, err
}

func (q *Queries) ListLabrooms(ctx context.Context) ([]Labroom, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, room, name, manager, tea_id FROM labrooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labrooms []Labroom
	for rows.Next() {
		var l Labroom
		if err := rows.Scan(&l.ID, &l.Room, &l.Name, &l.Manager, &l.TeaID); err != nil {
			return nil, err
		}
		labrooms = append(labrooms, l)
	}
	return labrooms, rows.Err()
}

func (q *Queries) GetLabroom(ctx context.Context, id int64) (Labroom, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, room, name, manager, tea_id FROM labrooms WHERE id = $1`, id)
	var l Labroom
	err := row.Scan(&l.ID, &l.Room, &l.Name, &l.Manager, &l.TeaID)
	return l, err
}

func (q *Queries) UpdateLabroom(ctx context.Context, l Labroom) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE labrooms SET room = $2, name = $3, manager = $4, tea_id = $5 WHERE id = $1`,
		l.ID, l.Room, l.Name, l.Manager, l.TeaID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteLabroom(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM labrooms WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Subcourses

const subcourseColumns = `id, weekday, room_id, tea_name, tea_id, year_id, stu_limit, course_id, lag_week`

func scanSubcourse(row scanner, s *Subcourse) error {
	return row.Scan(&s.ID, &s.Weekday, &s.RoomID, &s.TeaName, &s.TeaID,
		&s.YearID, &s.StuLimit, &s.CourseID, &s.LagWeek)
}

func (q *Queries) CreateSubcourse(ctx context.Context, s Subcourse) (Subcourse, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO subcourses (weekday, room_id, tea_name, tea_id, year_id, stu_limit, course_id, lag_week)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+subcourseColumns,
		s.Weekday, s.RoomID, s.TeaName, s.TeaID, s.YearID, s.StuLimit, s.CourseID, s.LagWeek)
	err := scanSubcourse(row, &s)
	return s, err
}

func (q *Queries) GetSubcourse(ctx context.Context, id int64) (Subcourse, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+subcourseColumns+` FROM subcourses WHERE id = $1`, id)
	var s Subcourse
	err := scanSubcourse(row, &s)
	return s, err
}

func (q *Queries) ListSubcourses(ctx context.Context, courseID int64, semesterID *int64) ([]Subcourse, error) {
	query := `SELECT ` + subcourseColumns + ` FROM subcourses WHERE course_id = $1`
	args := []interface{}{courseID}
	if semesterID != nil {
		query += ` AND year_id = $2`
		args = append(args, *semesterID)
	}
	query += ` ORDER BY id`
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subcourses []Subcourse
	for rows.Next() {
		var s Subcourse
		if err := scanSubcourse(rows, &s); err != nil {
			return nil, err
		}
		subcourses = append(subcourses, s)
	}
	return subcourses, rows.Err()
}

func (q *Queries) UpdateSubcourse(ctx context.Context, s Subcourse) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE subcourses SET weekday = $2, room_id = $3, tea_name = $4, tea_id = $5,
		        year_id = $6, stu_limit = $7, course_id = $8, lag_week = $9
		 WHERE id = $1`,
		s.ID, s.Weekday, s.RoomID, s.TeaName, s.TeaID, s.YearID, s.StuLimit, s.CourseID, s.LagWeek)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteSubcourse(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM subcourses WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const subcourseDetailQuery = `
SELECT s.id, s.weekday, r.room, s.tea_name, s.tea_id, s.year_id,
       s.stu_limit, s.course_id, s.lag_week, c.name
FROM subcourses s
JOIN courses c ON s.course_id = c.id
JOIN labrooms r ON s.room_id = r.id`

func scanSubcourseDetail(row scanner, d *SubcourseDetail) error {
	return row.Scan(&d.ID, &d.Weekday, &d.RoomName, &d.TeaName, &d.TeaID,
		&d.YearID, &d.StuLimit, &d.CourseID, &d.LagWeek, &d.CourseName)
}

func (q *Queries) GetSubcourseDetail(ctx context.Context, id int64) (SubcourseDetail, error) {
	row := q.db.QueryRow(ctx, subcourseDetailQuery+` WHERE s.id = $1`, id)
	var d SubcourseDetail
	err := scanSubcourseDetail(row, &d)
	return d, err
}

func (q *Queries) ListStudentSubcourses(ctx context.Context, stuID string, semesterID int64) ([]SubcourseDetail, error) {
	rows, err := q.db.Query(ctx, subcourseDetailQuery+`
		 JOIN students sg ON sg.subcourse_id = s.id
		 WHERE sg.stu_id = $1 AND s.year_id = $2`, stuID, semesterID)
	if err != nil {
		return nil, err
	}
	return collectSubcourseDetails(rows)
}

func (q *Queries) ListTeacherSubcourses(ctx context.Context, teaID string, semesterID int64) ([]SubcourseDetail, error) {
	rows, err := q.db.Query(ctx, subcourseDetailQuery+`
		 WHERE s.tea_id = $1 AND s.year_id = $2`, teaID, semesterID)
	if err != nil {
		return nil, err
	}
	return collectSubcourseDetails(rows)
}

func collectSubcourseDetails(rows interface {
	scanner
	Next() bool
	Close()
	Err() error
}) ([]SubcourseDetail, error) {
	defer rows.Close()
	var details []SubcourseDetail
	for rows.Next() {
		var d SubcourseDetail
		if err := scanSubcourseDetail(rows, &d); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Course schedules

func (q *Queries) CreateSchedule(ctx context.Context, s CourseSchedule) (CourseSchedule, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO course_schedules (week, name, requirement, course_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, week, name, requirement, course_id`,
		s.Week, s.Name, s.Requirement, s.CourseID)
	err := row.Scan(&s.ID, &s.Week, &s.Name, &s.Requirement, &s.CourseID)
	return s, err
}

func (q *Queries) ListSchedules(ctx context.Context, courseID int64) ([]CourseSchedule, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, week, name, requirement, course_id FROM course_schedules
		 WHERE course_id = $1 ORDER BY week`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schedules []CourseSchedule
	for rows.Next() {
		var s CourseSchedule
		if err := rows.Scan(&s.ID, &s.Week, &s.Name, &s.Requirement, &s.CourseID); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (q *Queries) GetSchedule(ctx context.Context, id int64) (CourseSchedule, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, week, name, requirement, course_id FROM course_schedules WHERE id = $1`, id)
	var s CourseSchedule
	err := row.Scan(&s.ID, &s.Week, &s.Name, &s.Requirement, &s.CourseID)
	return s, err
}

func (q *Queries) GetScheduleByWeek(ctx context.Context, courseID, week int64) (CourseSchedule, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, week, name, requirement, course_id FROM course_schedules
		 WHERE course_id = $1 AND week = $2`, courseID, week)
	var s CourseSchedule
	err := row.Scan(&s.ID, &s.Week, &s.Name, &s.Requirement, &s.CourseID)
	return s, err
}

func (q *Queries) UpdateSchedule(ctx context.Context, s CourseSchedule) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE course_schedules SET week = $2, name = $3, requirement = $4, course_id = $5
		 WHERE id = $1`,
		s.ID, s.Week, s.Name, s.Requirement, s.CourseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteSchedule(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM course_schedules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Subschedules

func (q *Queries) CreateSubschedule(ctx context.Context, s SubSchedule) (SubSchedule, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO subschedules (schedule_id, step, title) VALUES ($1, $2, $3)
		 RETURNING id, schedule_id, step, title`,
		s.ScheduleID, s.Step, s.Title)
	err := row.Scan(&s.ID, &s.ScheduleID, &s.Step, &s.Title)
	return s, err
}

func (q *Queries) ListSubschedules(ctx context.Context, scheduleID int64) ([]SubSchedule, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, schedule_id, step, title FROM subschedules
		 WHERE schedule_id = $1 ORDER BY step`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []SubSchedule
	for rows.Next() {
		var s SubSchedule
		if err := rows.Scan(&s.ID, &s.ScheduleID, &s.Step, &s.Title); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (q *Queries) GetSubschedule(ctx context.Context, id int64) (SubSchedule, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, schedule_id, step, title FROM subschedules WHERE id = $1`, id)
	var s SubSchedule
	err := row.Scan(&s.ID, &s.ScheduleID, &s.Step, &s.Title)
	return s, err
}

func (q *Queries) UpdateSubschedule(ctx context.Context, s SubSchedule) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE subschedules SET schedule_id = $2, step = $3, title = $4 WHERE id = $1`,
		s.ID, s.ScheduleID, s.Step, s.Title)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteSubschedule(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM subschedules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Course files (metadata only; blob storage lives elsewhere)

func (q *Queries) CreateCourseFile(ctx context.Context, f CourseFile) (CourseFile, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO course_files (fname, finfo, course_id) VALUES ($1, $2, $3)
		 RETURNING id, fname, finfo, course_id`,
		f.Fname, f.Finfo, f.CourseID)
	err := row.Scan(&f.ID, &f.Fname, &f.Finfo, &f.CourseID)
	return f, err
}

func (q *Queries) ListCourseFiles(ctx context.Context, courseID int64) ([]CourseFile, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, fname, finfo, course_id FROM course_files
		 WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []CourseFile
	for rows.Next() {
		var f CourseFile
		if err := rows.Scan(&f.ID, &f.Fname, &f.Finfo, &f.CourseID); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (q *Queries) GetCourseFile(ctx context.Context, id int64) (CourseFile, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, fname, finfo, course_id FROM course_files WHERE id = $1`, id)
	var f CourseFile
	err := row.Scan(&f.ID, &f.Fname, &f.Finfo, &f.CourseID)
	return f, err
}

func (q *Queries) DeleteCourseFile(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM course_files WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HasCourseEnrollmentWithPrefix reports whether the student is enrolled, in
// the given semester, in any subcourse of a course whose name starts with
// prefix. Used to derive the linux-course bit at login.
func (q *Queries) HasCourseEnrollmentWithPrefix(ctx context.Context, stuID, prefix string, semesterID int64) (bool, error) {
	row := q.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM students sg
		     JOIN subcourses s ON sg.subcourse_id = s.id
		     JOIN courses c ON s.course_id = c.id
		     WHERE sg.stu_id = $1 AND s.year_id = $2 AND c.name LIKE $3 || '%'
		 )`, stuID, semesterID, prefix)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
