package errors

import "errors"

// ── 存储层唯一约束冲突 ──
// Repository 在数据库唯一约束拒绝写入时返回以下错误，
// Service 层据此映射为对应的业务错误。

var (
	// ErrDuplicateSession 同一教师、课程、日期、开始时间已存在课次
	ErrDuplicateSession = errors.New("课次已存在")
	// ErrDuplicateQRToken 二维码令牌与已有课次冲突
	ErrDuplicateQRToken = errors.New("二维码令牌冲突")
	// ErrDuplicateRollNumber 同一课次中该学号已签到
	ErrDuplicateRollNumber = errors.New("该学号已签到")
	// ErrDuplicateDevice 同一课次中该设备已提交过签到
	ErrDuplicateDevice = errors.New("该设备已提交过签到")
)
