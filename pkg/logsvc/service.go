package logsvc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/logkit/pkg/logbuf"
	"github.com/omeyang/logkit/pkg/rotate"
)

// 默认轮转阈值，显式配置前生效。
const (
	// DefaultMaxBytes 默认单文件大小阈值（1 MiB）
	DefaultMaxBytes = int64(rotate.DefaultMaxBytes)

	// DefaultBackupCount 默认保留的备份数量
	DefaultBackupCount = rotate.DefaultBackupCount
)

// Config 进程级轮转配置，更新时整体替换而非合并。
type Config struct {
	// MaxBytes 单个日志文件大小阈值（字节）
	MaxBytes int64

	// BackupCount 每个日历日保留的编号备份数量
	BackupCount int
}

// options Service 配置
type options struct {
	// Config 初始轮转阈值
	Config Config

	// Logger 服务自身的运维日志输出（降级事件等）
	Logger *slog.Logger

	// Clock 时钟函数，透传给文件写入器
	Clock func() time.Time
}

// Option Service 配置选项函数
type Option func(*options)

// WithConfig 设置初始轮转阈值，取代内置默认值。
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.Config = cfg
	}
}

// WithLogger 设置运维日志输出。
// 默认为 slog.Default()。降级事件（文件写入失败、轮转失败）经此记录。
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.Logger = log
	}
}

// WithClock 设置时钟函数，用于测试中模拟跨日。
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		o.Clock = fn
	}
}

// activeWriter 当前生效的配置与写入器，作为整体原子替换。
type activeWriter struct {
	cfg    Config
	writer *rotate.Writer
}

// Service 日志采集服务。
//
// 进程内单实例：一个活动文件写入器 + 一个远端缓冲引用。
// Configure 与 Log 可以并发调用，活动写入器指针原子替换，
// 换下前已开始的写入在旧写入器上完整结束。
type Service struct {
	baseFile string
	buf      logbuf.Buffer
	log      *slog.Logger
	clock    func() time.Time

	active atomic.Pointer[activeWriter]
	closed atomic.Bool
}

// New 创建日志采集服务。
//
// baseFile 为轮转文件的基准文件名（如 "logs/system_logs.txt"），
// buf 为已初始化的远端缓冲。初始写入器按内置默认阈值
// （1 MiB / 10 个备份）或 WithConfig 指定的阈值构造。
func New(baseFile string, buf logbuf.Buffer, opts ...Option) (*Service, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}

	o := options{
		Config: Config{MaxBytes: DefaultMaxBytes, BackupCount: DefaultBackupCount},
		Logger: slog.Default(),
		Clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	s := &Service{
		baseFile: baseFile,
		buf:      buf,
		log:      o.Logger,
		clock:    o.Clock,
	}

	w, err := s.newWriter(o.Config)
	if err != nil {
		return nil, err
	}
	s.active.Store(&activeWriter{cfg: o.Config, writer: w})
	return s, nil
}

// newWriter 按给定阈值构造文件写入器。
// 轮转内部的降级事件经服务运维日志记录。
func (s *Service) newWriter(cfg Config) (*rotate.Writer, error) {
	return rotate.New(s.baseFile,
		rotate.WithMaxBytes(cfg.MaxBytes),
		rotate.WithBackupCount(cfg.BackupCount),
		rotate.WithClock(s.clock),
		rotate.WithOnError(func(err error) {
			s.log.Warn("log rotation degraded", slog.Any("error", err))
		}),
	)
}

// Configure 热更新轮转配置。
//
// maxBytes 与 backupCount 必须为正数，否则返回 [ErrInvalidConfig]
// 且不改动任何状态。校验通过时以新阈值构造全新写入器（当天日期的
// 新文件，不继承旧写入器的句柄与轮转状态），原子换下并关闭旧实例。
func (s *Service) Configure(maxBytes int64, backupCount int) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if maxBytes <= 0 || backupCount <= 0 {
		return fmt.Errorf("%w: maxBytes=%d backupCount=%d", ErrInvalidConfig, maxBytes, backupCount)
	}

	cfg := Config{MaxBytes: maxBytes, BackupCount: backupCount}
	w, err := s.newWriter(cfg)
	if err != nil {
		// 构造失败不触碰现有配置
		return fmt.Errorf("logsvc: build writer: %w", err)
	}

	old := s.active.Swap(&activeWriter{cfg: cfg, writer: w})
	if old != nil {
		// Close 会等待旧写入器上的在途写入结束
		if err := old.writer.Close(); err != nil {
			s.log.Warn("close previous writer", slog.Any("error", err))
		}
	}
	return nil
}

// Current 返回当前生效的轮转配置。
func (s *Service) Current() Config {
	return s.active.Load().cfg
}

// Log 记录一条日志。
//
// 先把格式化行追加到轮转文件，再把原始消息推入以 source 为 key 的
// 远端缓冲。文件路径失败只降级记录（绝不因轮转问题丢掉调用方的
// 远端可见性）；返回的错误只反映远端缓冲的写入结果。
func (s *Service) Log(ctx context.Context, source string, level Level, message string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	rec := Record{
		Time:    s.clock(),
		Level:   level,
		Source:  source,
		Message: message,
	}

	aw := s.active.Load()
	if _, err := aw.writer.Write([]byte(rec.Format())); err != nil {
		s.log.Warn("file log write degraded",
			slog.String("source", source), slog.Any("error", err))
	}

	return s.buf.Append(ctx, source, message)
}

// Info 以 INFO 级别记录一条日志。
func (s *Service) Info(ctx context.Context, source, message string) error {
	return s.Log(ctx, source, LevelInfo, message)
}

// Close 关闭服务，释放活动写入器。
// 远端缓冲的生命周期由调用方管理，Close 不会关闭传入的 buf。
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	if aw := s.active.Load(); aw != nil {
		return aw.writer.Close()
	}
	return nil
}
