package clock

import (
	"sync"
	"time"
)

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

// Real 系统时钟
type Real struct{}

// Now 返回系统当前时间
func (Real) Now() time.Time { return time.Now() }

// Fixed 可手动拨动的时钟，用于测试
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed 创建停在 t 的时钟
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now 返回当前设定时间
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set 将时钟拨到 t
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance 将时钟向前拨动 d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
