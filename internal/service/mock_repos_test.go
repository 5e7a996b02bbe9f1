package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"attend-revolution/backend/internal/model"
	pkgerrors "attend-revolution/backend/pkg/errors"
)

// 内存 mock 在互斥锁内原子地检查并写入，行为与数据库唯一约束一致

// ── Mock TeacherRepository ──

type mockTeacherRepo struct {
	mu       sync.Mutex
	teachers map[string]*model.Teacher
	err      error
}

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{teachers: make(map[string]*model.Teacher)}
}

func (m *mockTeacherRepo) Create(_ context.Context, teacher *model.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.teachers[teacher.TeacherID]; ok {
		return errors.New("duplicate teacher")
	}
	cp := *teacher
	m.teachers[teacher.TeacherID] = &cp
	return nil
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) List(_ context.Context) ([]model.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Teacher
	for _, t := range m.teachers {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeacherID < result[j].TeacherID })
	return result, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	seq      int
	// tokenCollisions 前 N 次插入模拟令牌冲突
	tokenCollisions int
	err             error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) CreateIfAbsent(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.tokenCollisions > 0 {
		m.tokenCollisions--
		return pkgerrors.ErrDuplicateQRToken
	}
	for _, s := range m.sessions {
		if s.TeacherID == session.TeacherID && s.CourseID == session.CourseID &&
			s.SessionDate.Equal(session.SessionDate) && s.StartTime == session.StartTime {
			return pkgerrors.ErrDuplicateSession
		}
		if s.QRToken == session.QRToken {
			return pkgerrors.ErrDuplicateQRToken
		}
	}
	if session.SessionID == "" {
		m.seq++
		session.SessionID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	}
	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) SetInactive(_ context.Context, id string, endedAt time.Time) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if s.IsActive {
		s.IsActive = false
		t := endedAt
		s.EndedAt = &t
		s.UpdatedAt = endedAt
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Session
	for _, s := range m.sessions {
		if s.TeacherID == teacherID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.After(result[j].SessionDate)
		}
		return result[i].StartTime > result[j].StartTime
	})
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records []model.AttendanceRecord
	seq     int
	// skipPrecheck 为 true 时 Find 查询总是返回未命中，用于模拟检查与插入之间的竞争
	skipPrecheck bool
	err          error
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{}
}

func (m *mockAttendanceRepo) InsertIfAbsent(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range m.records {
		if r.SessionID != record.SessionID {
			continue
		}
		if r.RollNumber == record.RollNumber {
			return pkgerrors.ErrDuplicateRollNumber
		}
		if r.DeviceFingerprint == record.DeviceFingerprint {
			return pkgerrors.ErrDuplicateDevice
		}
	}
	if record.AttendanceID == "" {
		m.seq++
		record.AttendanceID = fmt.Sprintf("rec-%d", m.seq)
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *mockAttendanceRepo) FindBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.Before(result[j].SubmittedAt)
		}
		return result[i].RollNumber < result[j].RollNumber
	})
	return result, nil
}

func (m *mockAttendanceRepo) FindBySessionAndRoll(_ context.Context, sessionID, rollNumber string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.skipPrecheck {
		return nil, gorm.ErrRecordNotFound
	}
	for _, r := range m.records {
		if r.SessionID == sessionID && r.RollNumber == rollNumber {
			cp := r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) FindBySessionAndDevice(_ context.Context, sessionID, fingerprint string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.skipPrecheck {
		return nil, gorm.ErrRecordNotFound
	}
	for _, r := range m.records {
		if r.SessionID == sessionID && r.DeviceFingerprint == fingerprint {
			cp := r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) CountBySession(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, r := range m.records {
		if r.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) CountBySessions(_ context.Context, sessionIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	result := make(map[string]int64, len(sessionIDs))
	for _, r := range m.records {
		if wanted[r.SessionID] {
			result[r.SessionID]++
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
