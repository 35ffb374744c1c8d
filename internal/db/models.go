package db

import "time"

type User struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Permission int64  `json:"permission"`
}

type Semester struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Course struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Ename   string `json:"ename"`
	Code    string `json:"code"`
	TeaID   string `json:"tea_id"`
	TeaName string `json:"tea_name"`
	Intro   string `json:"intro"`
	Mailbox string `json:"mailbox"`
	Term    int64  `json:"term"`
}

type Labroom struct {
	ID      int64  `json:"id"`
	Room    string `json:"room"`
	Name    string `json:"name"`
	Manager string `json:"manager"`
	TeaID   string `json:"tea_id"`
}

type Subcourse struct {
	ID       int64  `json:"id"`
	Weekday  int64  `json:"weekday"`
	RoomID   int64  `json:"room_id"`
	TeaName  string `json:"tea_name"`
	TeaID    string `json:"tea_id"`
	YearID   int64  `json:"year_id"`
	StuLimit int64  `json:"stu_limit"`
	CourseID int64  `json:"course_id"`
	LagWeek  int64  `json:"lag_week"`
}

// SubcourseDetail joins in the course and room names for listing views.
type SubcourseDetail struct {
	ID         int64  `json:"id"`
	Weekday    int64  `json:"weekday"`
	RoomName   string `json:"room_name"`
	TeaName    string `json:"tea_name"`
	TeaID      string `json:"tea_id"`
	YearID     int64  `json:"year_id"`
	StuLimit   int64  `json:"stu_limit"`
	CourseID   int64  `json:"course_id"`
	LagWeek    int64  `json:"lag_week"`
	CourseName string `json:"course_name"`
}

type GroupMember struct {
	ID          int64  `json:"id"`
	StuID       string `json:"stu_id"`
	StuName     string `json:"stu_name"`
	Seat        int64  `json:"seat"`
	SubcourseID int64  `json:"subcourse_id"`
}

type CourseSchedule struct {
	ID          int64  `json:"id"`
	Week        int64  `json:"week"`
	Name        string `json:"name"`
	Requirement string `json:"requirement"`
	CourseID    int64  `json:"course_id"`
}

type SubSchedule struct {
	ID         int64  `json:"id"`
	ScheduleID int64  `json:"schedule_id"`
	Step       int64  `json:"step"`
	Title      string `json:"title"`
}

type CourseFile struct {
	ID       int64  `json:"id"`
	Fname    string `json:"fname"`
	Finfo    string `json:"finfo"`
	CourseID int64  `json:"course_id"`
}

type StudentLog struct {
	ID          int64     `json:"id"`
	StuID       string    `json:"stu_id"`
	StuName     string    `json:"stu_name"`
	SubcourseID int64     `json:"subcourse_id"`
	RoomID      int64     `json:"room_id"`
	Seat        int64     `json:"seat"`
	LabName     string    `json:"lab_name"`
	Note        string    `json:"note"`
	TeaNote     string    `json:"tea_note"`
	TeaName     string    `json:"tea_name"`
	FinTime     time.Time `json:"fin_time"`
	Confirm     bool      `json:"confirm"`
}

type StudentTimeline struct {
	ID          int64     `json:"id"`
	StuID       string    `json:"stu_id"`
	TeaID       string    `json:"tea_id"`
	ScheduleID  int64     `json:"schedule_id"`
	Subschedule string    `json:"subschedule"`
	SubcourseID int64     `json:"subcourse_id"`
	Note        string    `json:"note"`
	Notetype    int64     `json:"notetype"`
	CreatedAt   time.Time `json:"created_at"`
}

type Equipment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Serial   string `json:"serial"`
	Value    int64  `json:"value"`
	Position string `json:"position"`
	Status   int64  `json:"status"`
	Note     string `json:"note"`
	OwnerID  string `json:"owner_id"`
}

type EquipmentHistory struct {
	ID           int64      `json:"id"`
	Borrower     string     `json:"borrower"`
	BorrowedDate time.Time  `json:"borrowed_date"`
	Telephone    string     `json:"telephone"`
	Note         string     `json:"note"`
	ReturnedDate *time.Time `json:"returned_date"`
	ItemID       int64      `json:"item_id"`
}

type MeetingRoom struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
	Info string `json:"info"`
}

type MeetingAgenda struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userid"`
	Username  string    `json:"username"`
	Repeat    bool      `json:"repeat"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	RoomID    int64     `json:"room_id"`
	Confirm   bool      `json:"confirm"`
}
