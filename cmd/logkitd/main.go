// logkitd 是日志采集守护进程。
//
// 用法:
//
//	logkitd [全局选项]
//
// 全局选项:
//
//	-c, --config   配置文件路径 (YAML/JSON，缺省时使用内置默认值)
//	-l, --listen   HTTP 监听地址，覆盖配置文件
//
// 进程把业务日志双路落盘（按大小与自然日轮转的本地文件）并写入
// Redis 远端缓冲，同时暴露日志读取、清除与配置热更新的 HTTP 端点。
// 配置文件变更时自动热应用轮转阈值，无需重启。
//
// 退出码:
//
//	0: 正常退出（收到 SIGINT/SIGTERM 后完成收尾）
//	1: 启动或运行失败
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omeyang/logkit/internal/config"
	"github.com/omeyang/logkit/internal/web"
	"github.com/omeyang/logkit/pkg/logbuf"
	"github.com/omeyang/logkit/pkg/logsvc"
)

// shutdownTimeout HTTP 服务优雅关闭的等待上限。
const shutdownTimeout = 10 * time.Second

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "logkitd",
		Usage:   "日志采集守护进程",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (YAML/JSON)",
			},
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "HTTP 监听地址，覆盖配置文件",
			},
		},
		Action: serve,
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "logkitd: %v\n", err)
		return 1
	}
	return 0
}

// serve 启动守护进程，阻塞到收到退出信号。
func serve(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.Listen = listen
	}

	log := newOpsLogger(cfg.OpsLog)
	log.Info("starting",
		slog.String("version", Version),
		slog.String("listen", cfg.Listen),
		slog.String("redis", cfg.Redis.Addr),
	)

	// Redis 远端缓冲
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	buf, err := logbuf.New(client,
		logbuf.WithKeyPrefix(cfg.Logging.KeyPrefix),
		logbuf.WithTTL(cfg.Logging.TTL),
	)
	if err != nil {
		return err
	}
	defer func() { _ = buf.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Ping(pingCtx).Err(); err != nil {
		// 远端不可达不阻止启动，文件路径仍然可用
		log.Warn("redis unreachable at startup", slog.Any("error", err))
	}
	cancel()

	// 日志服务
	svc, err := logsvc.New(cfg.Logging.File, buf,
		logsvc.WithLogger(log),
		logsvc.WithConfig(logsvc.Config{
			MaxBytes:    cfg.Logging.MaxSizeMB << 20,
			BackupCount: cfg.Logging.BackupCount,
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	// 配置文件热应用：只有轮转阈值在运行中可变
	if cfgPath != "" {
		watcher, err := config.Watch(cfgPath, func(next config.Config, err error) {
			if err != nil {
				log.Warn("config reload failed", slog.Any("error", err))
				return
			}
			if err := svc.Configure(next.Logging.MaxSizeMB<<20, next.Logging.BackupCount); err != nil {
				log.Warn("apply logging config failed", slog.Any("error", err))
				return
			}
			log.Info("logging config applied",
				slog.Int64("max_size_mb", next.Logging.MaxSizeMB),
				slog.Int("backup_count", next.Logging.BackupCount),
			)
		})
		if err != nil {
			return err
		}
		watcher.Start()
		defer func() { _ = watcher.Stop() }()
	}

	// HTTP 外观
	handler, err := web.NewHandler(svc, buf, log)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	handler.Register(mux)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           web.AccessLog(log, web.RequestID(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.Listen))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newOpsLogger 构造守护进程自身的运维日志。
// 配置了文件时经 lumberjack 轮转，否则输出到标准错误。
func newOpsLogger(cfg config.OpsLogConfig) *slog.Logger {
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}, nil))
}
