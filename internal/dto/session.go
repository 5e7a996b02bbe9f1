package dto

// ── 课次模块 DTO ──

// CreateSessionRequest 创建考勤课次请求
type CreateSessionRequest struct {
	CourseID    string `json:"course_id"    binding:"required,max=50"`
	CourseName  string `json:"course_name"  binding:"required,max=100"`
	SessionDate string `json:"session_date" binding:"required"` // "2026-10-19"
	SessionType string `json:"session_type" binding:"required,oneof=theory practical"`
	StartTime   string `json:"start_time"   binding:"required,clock"` // "09:00"
	EndTime     string `json:"end_time"     binding:"required,clock"` // "10:00"
}

// ListSessionsQuery 课次列表查询参数
type ListSessionsQuery struct {
	Active bool `form:"active"` // true 时仅返回当前可签到的课次
}
