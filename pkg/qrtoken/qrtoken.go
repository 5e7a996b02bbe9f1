package qrtoken

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
)

// Size 令牌随机字节数（256 bit）
const Size = 32

// Generator 二维码令牌生成器
type Generator struct {
	rand io.Reader
}

// NewGenerator 使用 crypto/rand 创建生成器
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorFrom 使用指定随机源创建生成器，仅测试使用
func NewGeneratorFrom(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate 生成 URL 安全、不可猜测的不透明令牌
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("读取随机数失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Equal 逐字节精确比较令牌，耗时与内容无关
func Equal(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
