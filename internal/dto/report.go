package dto

// ── 报表模块 DTO ──

// 报表格式
const (
	ReportFormatCSV  = "csv"
	ReportFormatPDF  = "pdf"
	ReportFormatXLSX = "xlsx"
)

// ReportQuery 考勤报表查询参数
// From/To 为 RFC3339 时刻，按签到时间闭区间过滤，均可省略
type ReportQuery struct {
	Format string `form:"format"` // csv | pdf | xlsx，默认 csv
	From   string `form:"from"`
	To     string `form:"to"`
}
