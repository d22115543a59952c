package rotate

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// day1 测试基准时间（远离午夜，避免与真实日期边界混淆）
var day1 = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

// newTestWriter 创建使用固定时钟的写入器
func newTestWriter(t *testing.T, clock *fakeClock, opts ...Option) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "system_logs.txt")
	opts = append(opts, WithClock(clock.Now))
	w, err := New(base, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, dir
}

// activeName 按日期生成活动/备份文件路径
func activeName(dir string, date time.Time, backup int) string {
	fn := FileName{
		Dir:    dir,
		Prefix: "system_logs",
		Date:   date.Format("2006-01-02"),
		Backup: backup,
		Ext:    ".txt",
	}
	return fn.String()
}

// =============================================================================
// 接口兼容性测试
// =============================================================================

// TestWriterInterface 验证 Writer 满足 io.WriteCloser
func TestWriterInterface(t *testing.T) {
	var _ io.WriteCloser = (*Writer)(nil)
}

// =============================================================================
// 配置验证测试
// =============================================================================

// TestConfigValidation 测试配置验证
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		opts     []Option
		wantErr  error
	}{
		{
			name:     "空文件名",
			filename: "",
			wantErr:  ErrEmptyFilename,
		},
		{
			name:     "目录路径",
			filename: "/var/log/",
			wantErr:  ErrInvalidFilename,
		},
		{
			name:     "路径穿越",
			filename: "../../etc/passwd.txt",
			wantErr:  ErrInvalidFilename,
		},
		{
			name:     "MaxBytes 为零",
			filename: "/tmp/test.log",
			opts:     []Option{WithMaxBytes(0)},
			wantErr:  ErrInvalidMaxBytes,
		},
		{
			name:     "MaxBytes 为负数",
			filename: "/tmp/test.log",
			opts:     []Option{WithMaxBytes(-1)},
			wantErr:  ErrInvalidMaxBytes,
		},
		{
			name:     "MaxBytes 超过上限",
			filename: "/tmp/test.log",
			opts:     []Option{WithMaxBytes(maxMaxBytes + 1)},
			wantErr:  ErrInvalidMaxBytes,
		},
		{
			name:     "BackupCount 为零",
			filename: "/tmp/test.log",
			opts:     []Option{WithBackupCount(0)},
			wantErr:  ErrInvalidBackupCount,
		},
		{
			name:     "BackupCount 超过上限",
			filename: "/tmp/test.log",
			opts:     []Option{WithBackupCount(1025)},
			wantErr:  ErrInvalidBackupCount,
		},
		{
			name:     "FileMode 包含文件类型位",
			filename: "/tmp/test.log",
			opts:     []Option{WithFileMode(os.ModeDir | 0644)},
			wantErr:  ErrInvalidFileMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.filename, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestNewNilOption 测试 nil option 被静默忽略
func TestNewNilOption(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "nil_opt.txt"), nil, WithMaxBytes(1024), nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("ok\n"))
	assert.NoError(t, err)
}

// =============================================================================
// 基本写入测试
// =============================================================================

// TestWriteCreatesDatedActiveFile 测试活动文件名嵌入当天日期
func TestWriteCreatesDatedActiveFile(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock)

	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)

	active := activeName(dir, day1, 0)
	assert.Equal(t, active, w.ActiveFile())

	content, err := os.ReadFile(active)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

// TestWriteAppends 测试多次写入按序追加
func TestWriteAppends(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock)

	var expected bytes.Buffer
	for i := 0; i < 50; i++ {
		line := []byte("a line of log data\n")
		_, err := w.Write(line)
		require.NoError(t, err)
		expected.Write(line)
	}

	content, err := os.ReadFile(activeName(dir, day1, 0))
	require.NoError(t, err)
	assert.Equal(t, expected.Bytes(), content)
}

// =============================================================================
// 大小轮转测试
// =============================================================================

// TestSizeRolloverExactlyOnce 测试大小达到阈值后下次写入前恰好轮转一次
func TestSizeRolloverExactlyOnce(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock, WithMaxBytes(100))

	// 恰好写满阈值，本次写入不触发轮转
	payload := bytes.Repeat([]byte("x"), 100)
	_, err := w.Write(payload)
	require.NoError(t, err)
	assert.NoFileExists(t, activeName(dir, day1, 1))

	// 下次写入前触发恰好一次轮转
	_, err = w.Write([]byte("next\n"))
	require.NoError(t, err)

	backup1, err := os.ReadFile(activeName(dir, day1, 1))
	require.NoError(t, err)
	assert.Equal(t, payload, backup1)

	active, err := os.ReadFile(activeName(dir, day1, 0))
	require.NoError(t, err)
	assert.Equal(t, "next\n", string(active))

	// 只轮转了一次
	assert.NoFileExists(t, activeName(dir, day1, 2))
}

// TestBackupRenumbering 测试备份编号上移与最旧备份覆盖
//
// backupCount=3 且轮转前存在备份 {1,2,3} 时，轮转后 1=新归档、
// 2=原 1、3=原 2，原 3 被覆盖丢弃。
func TestBackupRenumbering(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock, WithMaxBytes(10), WithBackupCount(3))

	// 预置既有备份
	require.NoError(t, os.WriteFile(activeName(dir, day1, 1), []byte("b1"), 0644))
	require.NoError(t, os.WriteFile(activeName(dir, day1, 2), []byte("b2"), 0644))
	require.NoError(t, os.WriteFile(activeName(dir, day1, 3), []byte("b3"), 0644))

	// 写满阈值再写一次，触发轮转
	_, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh\n"))
	require.NoError(t, err)

	read := func(backup int) string {
		content, err := os.ReadFile(activeName(dir, day1, backup))
		require.NoError(t, err)
		return string(content)
	}

	assert.Equal(t, "0123456789", read(1), "1 号应为新归档的活动文件")
	assert.Equal(t, "b1", read(2), "原 1 号应上移为 2 号")
	assert.Equal(t, "b2", read(3), "原 2 号应上移为 3 号，原 3 号被覆盖")
	assert.NoFileExists(t, activeName(dir, day1, 4), "不应产生超出 BackupCount 的备份")
}

// =============================================================================
// 日期轮转测试
// =============================================================================

// TestDayChangeRollover 测试未达大小阈值时跨日仍触发轮转
func TestDayChangeRollover(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock)

	_, err := w.Write([]byte("day one\n"))
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	day2 := clock.Now()

	_, err = w.Write([]byte("day two\n"))
	require.NoError(t, err)

	// 旧日期的活动文件归档为旧日期下的 1 号备份
	backup, err := os.ReadFile(activeName(dir, day1, 1))
	require.NoError(t, err)
	assert.Equal(t, "day one\n", string(backup))
	assert.NoFileExists(t, activeName(dir, day1, 0))

	// 新日期下产生新的活动文件
	active, err := os.ReadFile(activeName(dir, day2, 0))
	require.NoError(t, err)
	assert.Equal(t, "day two\n", string(active))
}

// TestDayChangeZeroBytesStillRotates 测试零字节跨日仍然轮转
func TestDayChangeZeroBytesStillRotates(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock)

	// 构造后未写入任何数据，直接跨日
	clock.Advance(24 * time.Hour)
	day2 := clock.Now()

	_, err := w.Write([]byte("m\n"))
	require.NoError(t, err)

	// 空的旧活动文件也被归档
	backup, err := os.ReadFile(activeName(dir, day1, 1))
	require.NoError(t, err)
	assert.Empty(t, backup)

	active, err := os.ReadFile(activeName(dir, day2, 0))
	require.NoError(t, err)
	assert.Equal(t, "m\n", string(active))
}

// TestDayChangeWithSizeExceeded 跨日与大小超限同时发生时只轮转一次
func TestDayChangeWithSizeExceeded(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock, WithMaxBytes(10))

	_, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	day2 := clock.Now()

	_, err = w.Write([]byte("after\n"))
	require.NoError(t, err)

	// 归档落在旧日期下，且只有 1 号备份
	backup, err := os.ReadFile(activeName(dir, day1, 1))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(backup))
	assert.NoFileExists(t, activeName(dir, day1, 2))
	assert.NoFileExists(t, activeName(dir, day2, 1))

	active, err := os.ReadFile(activeName(dir, day2, 0))
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(active))
}

// =============================================================================
// 手动轮转测试
// =============================================================================

// TestRotateManual 测试手动触发轮转
func TestRotateManual(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock)

	_, err := w.Write([]byte("before rotate\n"))
	require.NoError(t, err)

	require.NoError(t, w.Rotate())

	backup, err := os.ReadFile(activeName(dir, day1, 1))
	require.NoError(t, err)
	assert.Equal(t, "before rotate\n", string(backup))

	_, err = w.Write([]byte("after rotate\n"))
	require.NoError(t, err)

	active, err := os.ReadFile(activeName(dir, day1, 0))
	require.NoError(t, err)
	assert.Equal(t, "after rotate\n", string(active))
}

// =============================================================================
// 降级路径测试
// =============================================================================

// TestDegradeOnRotationFailure 测试轮转失败时降级并在目录恢复后自愈
func TestDegradeOnRotationFailure(t *testing.T) {
	clock := newFakeClock(day1)
	dir := t.TempDir()
	base := filepath.Join(dir, "system_logs.txt")

	var mu sync.Mutex
	var reported []error
	w, err := New(base,
		WithClock(clock.Now),
		WithMaxBytes(10),
		WithOnError(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		}),
	)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)

	// 目录只读：轮转中的重命名与重开都会失败
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { require.NoError(t, os.Chmod(dir, 0750)) })

	// 轮转降级：重命名失败被上报，重开失败导致本次写入报错
	_, err = w.Write([]byte("degraded\n"))
	assert.Error(t, err)

	mu.Lock()
	assert.NotEmpty(t, reported, "轮转失败应通过 OnError 上报")
	mu.Unlock()

	// 目录恢复后写入自愈：归档重命名已失败，旧字节保留在原路径上，
	// 新写入继续追加（降级保写入，不保轮转精度）
	require.NoError(t, os.Chmod(dir, 0750))
	_, err = w.Write([]byte("recovered\n"))
	require.NoError(t, err)

	active, err := os.ReadFile(activeName(dir, day1, 0))
	require.NoError(t, err)
	assert.Equal(t, "0123456789recovered\n", string(active))
}

// =============================================================================
// 关闭语义测试
// =============================================================================

// TestWriteAfterClose 测试关闭后的调用返回 ErrClosed
func TestWriteAfterClose(t *testing.T) {
	clock := newFakeClock(day1)
	w, _ := newTestWriter(t, clock)

	_, err := w.Write([]byte("before close\n"))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	_, err = w.Write([]byte("after close\n"))
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, w.Rotate(), ErrClosed)
	assert.ErrorIs(t, w.Close(), ErrClosed)
}

// =============================================================================
// 并发测试
// =============================================================================

// TestConcurrentWrite 测试并发写入不交错轮转状态
func TestConcurrentWrite(t *testing.T) {
	clock := newFakeClock(day1)
	w, dir := newTestWriter(t, clock, WithMaxBytes(4096), WithBackupCount(50))

	line := []byte("concurrent write line\n")
	const goroutines, writes = 10, 100

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines*writes)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < writes; j++ {
				if _, err := w.Write(line); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for writeErr := range errCh {
		t.Errorf("unexpected write error: %v", writeErr)
	}

	// 所有字节都应落盘：活动文件 + 各编号备份的总量一致
	var total int64
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		total += info.Size()
	}
	assert.Equal(t, int64(goroutines*writes*len(line)), total)
}
