package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"attend-revolution/backend/config"
	"attend-revolution/backend/internal/repository"
	"attend-revolution/backend/internal/service"
	"attend-revolution/backend/pkg/clock"
	"attend-revolution/backend/pkg/database"
	applogger "attend-revolution/backend/pkg/logger"
	"attend-revolution/backend/pkg/qrtoken"
)

// 教师登记工具：教师 ID 由学校统一分配，服务端只校验其是否已登记
//
//	teacher add  -id T001 -name "Dr. Rao"
//	teacher list

const usage = `用法:
    teacher add  -id <teacher_id> [-name <display_name>]
    teacher list
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("ATTEND_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	svc := service.NewService(cfg, repository.NewRepository(db), clock.Real{}, qrtoken.NewGenerator(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, svc.Teacher, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// run 执行子命令
func run(ctx context.Context, teachers service.TeacherService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令\n%s", usage)
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		id := fs.String("id", "", "教师 ID（必填）")
		name := fs.String("name", "", "显示名称")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		teacher, err := teachers.Provision(ctx, *id, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已登记教师 %s (%s)\n", teacher.TeacherID, teacher.DisplayName)
		return nil

	case "list":
		list, err := teachers.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TEACHER_ID\tNAME\tCREATED_AT")
		for _, t := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.TeacherID, t.DisplayName, t.CreatedAt.UTC().Format(time.RFC3339))
		}
		return tw.Flush()

	default:
		return fmt.Errorf("未知子命令 %q\n%s", args[0], usage)
	}
}
