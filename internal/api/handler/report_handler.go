package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attend-revolution/backend/internal/dto"
	"attend-revolution/backend/internal/service"
	"attend-revolution/backend/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// DownloadReport 下载课次考勤报表
// GET /api/v1/sessions/:id/report?format=csv|pdf|xlsx&from=RFC3339&to=RFC3339
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.Generate(c.Request.Context(), c.Param("id"), teacherID, &q)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Attachment(c, report.Filename, report.ContentType, report.Content.Bytes())
}

func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReportFormat):
		response.BadRequest(c, 23001, "不支持的报表格式，可选 csv、pdf、xlsx")
	case errors.Is(err, service.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21001, "课次不存在")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 21002, "无权导出该课次")
	default:
		response.InternalError(c)
	}
}
