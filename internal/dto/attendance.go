package dto

// ── 签到模块 DTO ──

// SubmitAttendanceRequest 学生扫码签到请求
type SubmitAttendanceRequest struct {
	RollNumber string `json:"roll_number" binding:"required,rollnumber"`
	QRToken    string `json:"qr_token"    binding:"required"`
}

// AttendanceStatusQuery 签到状态查询参数
type AttendanceStatusQuery struct {
	SessionID  string `form:"session_id"  binding:"required"`
	RollNumber string `form:"roll_number" binding:"required"`
}
