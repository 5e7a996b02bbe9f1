// Package fingerprint 计算签到设备指纹。
//
// 指纹 = hex(sha256(user_agent | ip | session_id))。
// 同一设备在同一课次内指纹稳定，跨课次不可关联；原始 UA/IP 不落库。
// User-Agent 与来源地址均可由客户端伪造，指纹只是软性的防代签手段。
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Identity 请求方呈现的网络身份信号
type Identity struct {
	UserAgent string
	IP        string
}

// Compute 计算 (身份信号, 课次) 的设备指纹
func Compute(id Identity, sessionID string) string {
	var b strings.Builder
	b.Grow(len(id.UserAgent) + len(id.IP) + len(sessionID) + 2)
	b.WriteString(id.UserAgent)
	b.WriteByte('|')
	b.WriteString(id.IP)
	b.WriteByte('|')
	b.WriteString(sessionID)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
