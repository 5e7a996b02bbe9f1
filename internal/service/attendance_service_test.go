package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"attend-revolution/backend/internal/dto"
	"attend-revolution/backend/pkg/fingerprint"
)

var (
	deviceA = fingerprint.Identity{UserAgent: "Mozilla/5.0 (Android 14)", IP: "10.0.0.11"}
	deviceB = fingerprint.Identity{UserAgent: "Mozilla/5.0 (iPhone)", IP: "10.0.0.12"}
)

func submit(env *testEnv, sessionID, roll, token string, id fingerprint.Identity) (*dto.AttendanceResponse, error) {
	return env.svc.Attendance.Submit(context.Background(), sessionID,
		&dto.SubmitAttendanceRequest{RollNumber: roll, QRToken: token}, id)
}

// ── 重复签到与窗口 ──

// 同一学号重复签到
func TestAttendanceService_Submit_DuplicateRoll(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:30"))

	env.clock.Set(at(9, 15))
	rec, err := submit(env, s.ID, "2024CS101", s.QRToken, deviceA)
	if err != nil {
		t.Fatalf("首次签到应成功: %v", err)
	}
	if rec.RollNumber != "2024CS101" || rec.SessionID != s.ID {
		t.Errorf("记录字段不一致: %+v", rec)
	}
	if rec.SubmittedAt != "2026-10-19T09:15:00Z" {
		t.Errorf("签到时间应取自时钟，实际 %s", rec.SubmittedAt)
	}

	// 同一设备、同一学号重签
	env.clock.Set(at(9, 16))
	if _, err := submit(env, s.ID, "2024CS101", s.QRToken, deviceA); !errors.Is(err, ErrDuplicateRollNumber) {
		t.Errorf("期望 ErrDuplicateRollNumber，实际: %v", err)
	}

	// 换设备提交同一学号
	if _, err := submit(env, s.ID, "2024CS101", s.QRToken, deviceB); !errors.Is(err, ErrDuplicateRollNumber) {
		t.Errorf("换设备期望 ErrDuplicateRollNumber，实际: %v", err)
	}
	if env.attendance.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d", env.attendance.count())
	}
}

// 同一设备提交不同学号
func TestAttendanceService_Submit_DeviceReuse(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:30"))

	env.clock.Set(at(9, 20))
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); err != nil {
		t.Fatalf("首次签到应成功: %v", err)
	}

	env.clock.Set(at(9, 21))
	if _, err := submit(env, s.ID, "R2", s.QRToken, deviceA); !errors.Is(err, ErrDeviceAlreadyUsed) {
		t.Errorf("期望 ErrDeviceAlreadyUsed，实际: %v", err)
	}
}

// 设备检查先于窗口检查：窗口关闭后复用设备仍报设备冲突
func TestAttendanceService_DeviceCheckPrecedesWindow(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))

	env.clock.Set(at(9, 30))
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); err != nil {
		t.Fatalf("首次签到应成功: %v", err)
	}

	env.clock.Set(at(11, 0))
	if _, err := submit(env, s.ID, "R2", s.QRToken, deviceA); !errors.Is(err, ErrDeviceAlreadyUsed) {
		t.Errorf("期望 ErrDeviceAlreadyUsed，实际: %v", err)
	}
	if _, err := submit(env, s.ID, "R2", s.QRToken, deviceB); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("期望 ErrSessionNotOpen，实际: %v", err)
	}
}

// 窗口结束后签到
func TestAttendanceService_Submit_WindowClosed(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "09:05"))

	env.clock.Set(at(9, 10))
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("期望 ErrSessionNotOpen，实际: %v", err)
	}
}

// 手动结束后立即不可签到
func TestAttendanceService_EndedSession(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))

	env.clock.Set(at(9, 10))
	if _, err := env.svc.Session.End(context.Background(), s.ID, "T1"); err != nil {
		t.Fatalf("End 应成功: %v", err)
	}
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("期望 ErrSessionNotOpen，实际: %v", err)
	}
}

func TestAttendanceService_BeforeWindow(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))

	env.clock.Set(at(8, 59))
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("期望 ErrSessionNotOpen，实际: %v", err)
	}
}

// ── 令牌精确匹配 ──

func TestAttendanceService_TokenExactness(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))
	env.clock.Set(at(9, 10))

	flip := func(c byte) string {
		if c == 'A' {
			return "B"
		}
		return "A"
	}

	variants := []string{
		s.QRToken[:len(s.QRToken)-1],
		s.QRToken + "x",
		flip(s.QRToken[0]) + s.QRToken[1:],
		s.QRToken[:10] + flip(s.QRToken[10]) + s.QRToken[11:],
		strings.ToUpper(s.QRToken) + "!",
		" " + s.QRToken,
	}
	for i, tok := range variants {
		if _, err := submit(env, s.ID, fmt.Sprintf("R%d", i), tok, deviceA); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("令牌变体 %q 期望 ErrInvalidToken，实际: %v", tok, err)
		}
	}
	if env.attendance.count() != 0 {
		t.Errorf("无效令牌不应写入记录，实际 %d 条", env.attendance.count())
	}
}

// ── 校验顺序 ──

func TestAttendanceService_ValidationOrder(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))
	env.clock.Set(at(9, 10))

	tests := []struct {
		name      string
		sessionID string
		roll      string
		token     string
		want      error
	}{
		{"学号为空", s.ID, "", s.QRToken, ErrValidation},
		{"学号含空格", s.ID, "R 1", s.QRToken, ErrValidation},
		{"学号含非法字符", s.ID, "R1;DROP", s.QRToken, ErrValidation},
		{"学号过长", s.ID, strings.Repeat("9", 51), s.QRToken, ErrValidation},
		{"学号非法优先于缺少令牌", "missing", "R/1", "", ErrValidation},
		{"缺少令牌", s.ID, "R1", "", ErrValidation},
		{"缺少令牌优先于课次不存在", "missing", "R1", "", ErrValidation},
		{"课次不存在", "missing", "R1", "tok", ErrSessionNotFound},
		{"令牌错误", s.ID, "R1", "wrong", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := submit(env, tt.sessionID, tt.roll, tt.token, deviceA)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}

	if _, err := env.svc.Attendance.Submit(context.Background(), s.ID, nil, deviceA); !errors.Is(err, ErrValidation) {
		t.Errorf("nil 请求期望 ErrValidation，实际: %v", err)
	}
}

func TestValidRollNumber(t *testing.T) {
	tests := []struct {
		roll string
		want bool
	}{
		{"2024CS101", true},
		{"a_b-C9", true},
		{strings.Repeat("x", 50), true},
		{"", false},
		{strings.Repeat("x", 51), false},
		{"R.1", false},
		{"学号", false},
	}
	for _, tt := range tests {
		if got := ValidRollNumber(tt.roll); got != tt.want {
			t.Errorf("ValidRollNumber(%q)=%v，期望 %v", tt.roll, got, tt.want)
		}
	}
}

// ── 并发同学号提交只有一条成功 ──

func TestAttendanceService_ConcurrentIdenticalSubmissions(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))
	env.clock.Set(at(9, 10))

	// 预检查总是放行，冲突只能由插入时的唯一约束发现
	env.attendance.skipPrecheck = true

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dup     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := deviceA
			if i%2 == 1 {
				id = fingerprint.Identity{UserAgent: "ua", IP: fmt.Sprintf("10.0.1.%d", i)}
			}
			_, err := submit(env, s.ID, "R1", s.QRToken, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrDuplicateRollNumber):
				dup++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 1 || dup != n-1 {
		t.Errorf("期望 1 成功 %d 重复，实际 %d 成功 %d 重复", n-1, success, dup)
	}
	if env.attendance.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d", env.attendance.count())
	}
}

func TestAttendanceService_ConcurrentSameDevice(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))
	env.clock.Set(at(9, 10))
	env.attendance.skipPrecheck = true

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		reused  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := submit(env, s.ID, fmt.Sprintf("R%d", i), s.QRToken, deviceA)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrDeviceAlreadyUsed):
				reused++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 1 || reused != n-1 {
		t.Errorf("期望 1 成功 %d 设备冲突，实际 %d 成功 %d 冲突", n-1, success, reused)
	}
}

func TestAttendanceService_StoreFailure(t *testing.T) {
	env := setupTestEnv()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))
	env.clock.Set(at(9, 10))
	env.attendance.err = errors.New("disk full")

	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); !errors.Is(err, ErrInternal) {
		t.Errorf("期望 ErrInternal，实际: %v", err)
	}
}

// ── GetBySession ──

func TestAttendanceService_GetBySession_Chronological(t *testing.T) {
	env := setupTestEnv()
	ctx := context.Background()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))

	steps := []struct {
		min  int
		roll string
		id   fingerprint.Identity
	}{
		{20, "R3", fingerprint.Identity{UserAgent: "c", IP: "3"}},
		{5, "R1", fingerprint.Identity{UserAgent: "a", IP: "1"}},
		{12, "R2", fingerprint.Identity{UserAgent: "b", IP: "2"}},
	}
	for _, st := range steps {
		env.clock.Set(at(9, st.min))
		if _, err := submit(env, s.ID, st.roll, s.QRToken, st.id); err != nil {
			t.Fatalf("签到 %s 失败: %v", st.roll, err)
		}
	}

	list, err := env.svc.Attendance.GetBySession(ctx, s.ID, "T1")
	if err != nil {
		t.Fatalf("GetBySession 应成功: %v", err)
	}
	want := []string{"R1", "R2", "R3"}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d", len(want), len(list))
	}
	for i, roll := range want {
		if list[i].RollNumber != roll {
			t.Errorf("第 %d 条期望 %s，实际 %s", i, roll, list[i].RollNumber)
		}
	}

	// 只读且可重复
	again, _ := env.svc.Attendance.GetBySession(ctx, s.ID, "T1")
	if len(again) != len(list) {
		t.Error("重复读取结果应一致")
	}

	if _, err := env.svc.Attendance.GetBySession(ctx, s.ID, "T2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
	if _, err := env.svc.Attendance.GetBySession(ctx, "missing", "T1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
}

// ── CheckStatus ──

func TestAttendanceService_CheckStatus(t *testing.T) {
	env := setupTestEnv()
	ctx := context.Background()
	s := mustCreate(t, env, "T1", createReq("09:00", "10:00"))

	env.clock.Set(at(9, 10))
	if _, err := submit(env, s.ID, "R1", s.QRToken, deviceA); err != nil {
		t.Fatalf("签到失败: %v", err)
	}

	status, err := env.svc.Attendance.CheckStatus(ctx, s.ID, "R1")
	if err != nil {
		t.Fatalf("CheckStatus 应成功: %v", err)
	}
	if !status.HasMarked || status.SubmittedAt == nil || *status.SubmittedAt != "2026-10-19T09:10:00Z" {
		t.Errorf("已签到状态不正确: %+v", status)
	}

	for _, roll := range []string{"R2", "bad roll"} {
		status, err := env.svc.Attendance.CheckStatus(ctx, s.ID, roll)
		if err != nil {
			t.Fatalf("CheckStatus(%q) 应成功: %v", roll, err)
		}
		if status.HasMarked {
			t.Errorf("学号 %q 不应显示已签到", roll)
		}
	}
}
