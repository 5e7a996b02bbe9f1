package dto

// ── 课次模块响应 ──

// SessionResponse 课次信息响应
// 仅返回给课次所属教师，因此包含二维码令牌
type SessionResponse struct {
	ID          string  `json:"id"`
	TeacherID   string  `json:"teacher_id"`
	CourseID    string  `json:"course_id"`
	CourseName  string  `json:"course_name"`
	SessionDate string  `json:"session_date"`
	SessionType string  `json:"session_type"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	QRToken     string  `json:"qr_token"`
	IsActive    bool    `json:"is_active"`
	EndedAt     *string `json:"ended_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// SessionDetailResponse 课次详情（含签到统计）
type SessionDetailResponse struct {
	SessionResponse
	AttendanceCount  int64 `json:"attendance_count"`
	IsOpen           bool  `json:"is_open"`
	RemainingSeconds int64 `json:"remaining_seconds"` // 距签到窗口结束的秒数，已结束为 0
}

// ── 签到模块响应 ──

// AttendanceResponse 签到记录响应（不含设备指纹）
type AttendanceResponse struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	RollNumber  string `json:"roll_number"`
	SubmittedAt string `json:"submitted_at"`
}

// AttendanceStatusResponse 学生签到状态
type AttendanceStatusResponse struct {
	HasMarked   bool    `json:"has_marked"`
	SubmittedAt *string `json:"submitted_at,omitempty"`
}
