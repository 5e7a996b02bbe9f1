package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"attend-revolution/backend/internal/model"
)

type mockTeacherService struct {
	teachers []model.Teacher
}

func (m *mockTeacherService) Authenticate(_ context.Context, _ string) error { return nil }

func (m *mockTeacherService) Provision(_ context.Context, id, name string) (*model.Teacher, error) {
	t := model.Teacher{TeacherID: id, DisplayName: name, CreatedAt: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	m.teachers = append(m.teachers, t)
	return &t, nil
}

func (m *mockTeacherService) List(_ context.Context) ([]model.Teacher, error) {
	return m.teachers, nil
}

func TestRun_AddAndList(t *testing.T) {
	svc := &mockTeacherService{}
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, svc, []string{"add", "-id", "T001", "-name", "Dr. Rao"}, &out); err != nil {
		t.Fatalf("add 应成功: %v", err)
	}
	if !strings.Contains(out.String(), "T001") {
		t.Errorf("输出应包含教师 ID，实际 %q", out.String())
	}

	out.Reset()
	if err := run(ctx, svc, []string{"list"}, &out); err != nil {
		t.Fatalf("list 应成功: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "T001") || !strings.Contains(lines[1], "2026-10-19T08:00:00Z") {
		t.Errorf("list 输出不符合预期:\n%s", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := run(context.Background(), &mockTeacherService{}, []string{"remove"}, &bytes.Buffer{}); err == nil {
		t.Error("未知子命令应返回错误")
	}
	if err := run(context.Background(), &mockTeacherService{}, nil, &bytes.Buffer{}); err == nil {
		t.Error("缺少子命令应返回错误")
	}
}
