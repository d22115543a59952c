package rotate

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// 默认配置值
const (
	// DefaultMaxBytes 默认单个日志文件大小阈值（1 MiB）
	DefaultMaxBytes = 1 << 20

	// DefaultBackupCount 默认保留的编号备份数量
	DefaultBackupCount = 10

	// DefaultFileMode 默认日志文件权限
	DefaultFileMode = os.FileMode(0644)

	// maxMaxBytes 大小阈值上限（10 GiB）
	maxMaxBytes = int64(10) << 30

	// maxBackupCount 备份数量上限
	maxBackupCount = 1024

	// dirPerm 自动创建父目录时使用的权限
	dirPerm = os.FileMode(0750)
)

// config Writer 配置
type config struct {
	// MaxBytes 活动文件大小阈值，达到后下次写入前触发轮转
	// 默认值 DefaultMaxBytes，必须 > 0
	MaxBytes int64

	// BackupCount 保留的编号备份数量
	// 默认值 DefaultBackupCount，必须 > 0
	BackupCount int

	// FileMode 日志文件权限
	// 仅允许权限位（0000~0777）
	FileMode os.FileMode

	// OnError 可选的错误回调函数
	//
	// 轮转过程中的重命名/重开失败通过此回调上报，默认为 nil（静默忽略）。
	// 回调函数不得向同一 Writer 写入数据，否则会导致递归死锁。
	OnError func(error)

	// Clock 时钟函数，决定"今天"是哪一天
	// 默认为 time.Now，测试中可注入固定时钟
	Clock func() time.Time
}

// Option Writer 配置选项函数
type Option func(*config)

// WithMaxBytes 设置活动文件大小阈值（字节）
func WithMaxBytes(n int64) Option {
	return func(c *config) {
		c.MaxBytes = n
	}
}

// WithBackupCount 设置保留的编号备份数量
func WithBackupCount(n int) Option {
	return func(c *config) {
		c.BackupCount = n
	}
}

// WithFileMode 设置日志文件权限
func WithFileMode(mode os.FileMode) Option {
	return func(c *config) {
		c.FileMode = mode
	}
}

// WithOnError 设置错误回调函数
//
// 设计决策: 不在 Writer 内部使用日志库记录轮转失败，避免 Writer 作为
// 日志输出目标时产生递归写入。降级事件由调用方在回调中记录。
func WithOnError(fn func(error)) Option {
	return func(c *config) {
		c.OnError = fn
	}
}

// WithClock 设置时钟函数
//
// 用于测试中模拟跨日写入。生产代码不需要设置此选项。
func WithClock(fn func() time.Time) Option {
	return func(c *config) {
		c.Clock = fn
	}
}

// Writer 按日期与大小双重策略轮转的日志文件写入器。
//
// 单实例独占活动文件与备份序列，所有触及轮转状态的操作
// （测大小、关闭、重命名、重开）由同一把互斥锁保护，两次并发
// Write 不会交错执行轮转。
type Writer struct {
	mu   sync.Mutex
	name FileName // 活动文件名（Backup == 0），Date 随轮转推进
	file *os.File // 当前打开的文件句柄；降级期间为 nil

	maxBytes    int64
	backupCount int
	fileMode    os.FileMode
	onError     func(error)
	now         func() time.Time

	closed atomic.Bool
}

// New 创建日志轮转写入器。
//
// filename 为基准文件名（如 "system_logs.txt"），实际活动文件名
// 会嵌入当天日期。父目录不存在时自动创建（权限 0750）。
// 构造期打开文件失败时 fail-fast 返回错误。
func New(filename string, opts ...Option) (*Writer, error) {
	cfg := config{
		MaxBytes:    DefaultMaxBytes,
		BackupCount: DefaultBackupCount,
		FileMode:    DefaultFileMode,
		Clock:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	safePath, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	dir, prefix, ext, err := splitBase(safePath)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("rotate: create log directory: %w", err)
		}
	}

	w := &Writer{
		name: FileName{
			Dir:    dir,
			Prefix: prefix,
			Date:   cfg.Clock().Format(dateLayout),
			Ext:    ext,
		},
		maxBytes:    cfg.MaxBytes,
		backupCount: cfg.BackupCount,
		fileMode:    cfg.FileMode,
		onError:     cfg.OnError,
		now:         cfg.Clock,
	}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

// validateConfig 验证 Writer 配置
func validateConfig(cfg *config) error {
	if cfg.MaxBytes <= 0 || cfg.MaxBytes > maxMaxBytes {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxBytes, cfg.MaxBytes, maxMaxBytes)
	}
	if cfg.BackupCount <= 0 || cfg.BackupCount > maxBackupCount {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidBackupCount, cfg.BackupCount, maxBackupCount)
	}
	if cfg.FileMode&^os.FileMode(0o777) != 0 {
		return fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, cfg.FileMode)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return nil
}

// Write 实现 io.Writer 接口。
//
// 先评估轮转条件（大小或日期），需要时执行轮转，再把 p 追加到
// 活动文件。轮转内部失败只降级不报错；返回的错误只可能来自对
// 活动文件本身的追加写入（或 ErrClosed）。
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Close 可能在拿锁前完成，持锁后复查保证 ErrClosed 契约
	if w.closed.Load() {
		return 0, ErrClosed
	}

	now := w.now()
	if w.shouldRollover(now) {
		// 日期变化与大小超限在同一次判定中只轮转一次
		w.doRollover(now)
	}

	if w.file == nil {
		// 降级恢复：上次轮转未能重开文件，在写入前重试
		if err := w.reopen(); err != nil {
			return 0, fmt.Errorf("rotate: reopen %s: %w", w.name.String(), err)
		}
	}

	return w.file.Write(p)
}

// shouldRollover 判断下次写入前是否需要轮转。
//
// 条件：活动文件大小 ≥ MaxBytes，或日历日期相对上次轮转发生变化。
// *os.File 无用户态缓冲，Stat 得到的即为真实落盘大小。
func (w *Writer) shouldRollover(now time.Time) bool {
	if now.Format(dateLayout) != w.name.Date {
		return true
	}
	if w.file == nil {
		// 降级期间大小未知，交由 Write 的重开路径处理
		return false
	}
	info, err := w.file.Stat()
	if err != nil {
		w.reportError(fmt.Errorf("rotate: stat active file: %w", err))
		return false
	}
	return info.Size() >= w.maxBytes
}

// doRollover 执行一次轮转。
//
// 备份序列按日历日期分组：刚关闭的活动文件归档进它自身日期的
// 备份序列。跨日轮转时先在旧日期下完成上移与归档，再采用新日期
// 打开新的活动文件，保证所有重命名都落在正确的日期限定文件名上。
// 重命名失败只上报不中断，最大限度保留后续写入路径。
func (w *Writer) doRollover(now time.Time) {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.reportError(fmt.Errorf("rotate: close active file: %w", err))
		}
		w.file = nil
	}

	// archive 固定为刚关闭文件的日期；同一次判定中日期变化与
	// 大小超限只走这一条归档路径
	archive := w.name

	// 上移已有编号备份：i → i+1，编号 BackupCount 处的最旧备份被覆盖
	for i := w.backupCount - 1; i >= 1; i-- {
		src := archive.WithBackup(i).String()
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := archive.WithBackup(i + 1).String()
		if err := os.Rename(src, dst); err != nil {
			w.reportError(fmt.Errorf("rotate: shift backup %d: %w", i, err))
		}
	}

	// 刚关闭的活动文件成为 1 号备份
	if _, err := os.Stat(archive.String()); err == nil {
		if err := os.Rename(archive.String(), archive.WithBackup(1).String()); err != nil {
			w.reportError(fmt.Errorf("rotate: archive active file: %w", err))
		}
	}

	if date := now.Format(dateLayout); date != w.name.Date {
		w.name.Date = date
	}

	if err := w.reopen(); err != nil {
		// 文件保持 nil，下次 Write 重试重开
		w.reportError(fmt.Errorf("rotate: reopen after rollover: %w", err))
	}
}

// reopen 以追加模式打开（必要时创建）当前日期的活动文件。
func (w *Writer) reopen() error {
	f, err := os.OpenFile(w.name.String(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, w.fileMode)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

// Rotate 手动触发一次轮转。
//
// 关闭当前文件，重命名进备份序列，打开新的空活动文件。
// 返回的错误只可能来自新活动文件的重开失败（或 ErrClosed）。
func (w *Writer) Rotate() error {
	if w.closed.Load() {
		return ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return ErrClosed
	}

	w.doRollover(w.now())
	if w.file == nil {
		return fmt.Errorf("rotate: reopen %s failed", w.name.String())
	}
	return nil
}

// Close 关闭写入器，释放文件句柄。
//
// 关闭后调用 Write 或 Rotate 返回 [ErrClosed]，重复 Close 也返回
// [ErrClosed]。首次 Close 失败后不重置标记，保证关闭后不再有新的
// 写入到达底层文件。
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// ActiveFile 返回当前活动文件的完整路径。
func (w *Writer) ActiveFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name.String()
}

// reportError 通过回调上报轮转内部错误。
// 回调 panic 被 recover 隔离，防止错误通知反向中断写入主流程。
func (w *Writer) reportError(err error) {
	if err != nil && w.onError != nil {
		defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
		w.onError(err)
	}
}
