package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attend-revolution/backend/config"
	"attend-revolution/backend/internal/api/handler"
	"attend-revolution/backend/internal/api/middleware"
)

// maxBodyBytes 请求体上限，签到与创建课次的 JSON 都很小
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时签到接口不限流
func Setup(cfg *config.Config, h *handler.Handler, auth middleware.TeacherAuthenticator, limiter middleware.RateLimiter, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("注册校验器失败: %w", err)
	}

	r := gin.New()

	// 仅信任配置中的代理，ClientIP 参与设备指纹与限流
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("设置可信代理失败: %w", err)
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学生端（无需认证，凭二维码令牌）
		attendance := v1.Group("/attendance")
		{
			attendance.POST("/session/:id/mark",
				middleware.RateLimit(limiter, cfg.RateLimit.SubmitLimit, cfg.RateLimit.SubmitWindow, logger),
				h.Attendance.MarkAttendance)
			attendance.GET("/check", h.Attendance.CheckStatus)
		}

		// 教师端
		sessions := v1.Group("/sessions")
		sessions.Use(middleware.TeacherAuth(auth, logger))
		{
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("", h.Session.ListSessions)
			sessions.GET("/calendar.ics", h.Session.GetCalendar)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.POST("/:id/end", h.Session.EndSession)
			sessions.GET("/:id/qrcode", h.Session.GetQRCode)
			sessions.GET("/:id/attendance", h.Attendance.ListSessionAttendance)
			sessions.GET("/:id/report", h.Report.DownloadReport)
		}
	}

	return r, nil
}
