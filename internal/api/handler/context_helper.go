package handler

import (
	"github.com/gin-gonic/gin"

	"attend-revolution/backend/internal/api/middleware"
	"attend-revolution/backend/pkg/fingerprint"
	"attend-revolution/backend/pkg/response"
)

// MustGetTeacherID 从 Gin 上下文中安全提取 teacher_id。
// 如果 TeacherAuth 中间件未正确注入 teacher_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetTeacherID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.TeacherIDKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// requestIdentity 提取请求方的设备身份信号
// ClientIP 受 server.trusted_proxies 约束，未信任的代理头会被忽略
func requestIdentity(c *gin.Context) fingerprint.Identity {
	return fingerprint.Identity{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}
