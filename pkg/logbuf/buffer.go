package logbuf

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// 默认配置值
const (
	// DefaultKeyPrefix 默认的 Redis key 前缀，完整 key 为 <prefix><source>
	DefaultKeyPrefix = "system_logs_"

	// DefaultMaxEntries 每个来源保留的最近消息条数
	DefaultMaxEntries = 1000

	// DefaultTTL 列表首次写入时设置的存活时间
	DefaultTTL = 7 * 24 * time.Hour
)

// appendScript 是追加一条消息的 Lua 脚本。
//
// RPUSH 追加、LTRIM 截断到最近 N 条、TTL 为 -1（key 存在但未设置
// 过期）时 EXPIRE 一次。三步在服务端原子执行，同一来源的并发
// Append 不会交错截断，已生效的 TTL 也不会被刷新。
var appendScript = redis.NewScript(`
	redis.call("RPUSH", KEYS[1], ARGV[1])
	redis.call("LTRIM", KEYS[1], -tonumber(ARGV[2]), -1)
	if redis.call("TTL", KEYS[1]) == -1 then
		redis.call("EXPIRE", KEYS[1], ARGV[3])
	end
	return redis.call("LLEN", KEYS[1])
`)

// =============================================================================
// 接口定义
// =============================================================================

// Buffer 定义有界远端日志缓冲接口。
// 所有方法并发安全；每次 Append 的追加/截断/过期是一个原子单元。
type Buffer interface {
	// Append 将 message 追加到 source 对应的流尾部并截断到最近
	// MaxEntries 条。流上没有生效的过期时间时设置一次 TTL，已有
	// TTL 保持不变。
	Append(ctx context.Context, source, message string) error

	// Read 返回 source 当前保留的全部消息，按插入顺序排列，
	// 完全相同的消息折叠到首次出现的位置。来源不存在时返回
	// 空切片而非错误。
	Read(ctx context.Context, source string) ([]string, error)

	// Clear 删除 source 的整个流。随后的 Append 以全新 TTL 重建。
	Clear(ctx context.Context, source string) error

	// Close 关闭缓冲并释放底层客户端连接。
	Close() error
}

// =============================================================================
// 配置选项
// =============================================================================

// Options 定义缓冲的配置选项。
type Options struct {
	// KeyPrefix Redis key 前缀，完整 key 为 <prefix><source>。
	// 默认为 DefaultKeyPrefix。
	KeyPrefix string

	// MaxEntries 每个来源保留的最近消息条数。
	// 默认为 DefaultMaxEntries，必须 > 0。
	MaxEntries int

	// TTL 列表首次写入时设置的存活时间。
	// 默认为 DefaultTTL，必须 > 0。
	TTL time.Duration
}

// Option 定义配置缓冲的函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置。
func defaultOptions() *Options {
	return &Options{
		KeyPrefix:  DefaultKeyPrefix,
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}

// WithKeyPrefix 设置 Redis key 前缀。
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

// WithMaxEntries 设置每个来源保留的消息条数上限。
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		o.MaxEntries = n
	}
}

// WithTTL 设置首次写入时使用的存活时间。
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// =============================================================================
// 工厂函数
// =============================================================================

// New 创建 Redis 实现的日志缓冲。
// client 必须是已初始化的 redis.UniversalClient，生命周期随
// Buffer.Close 一并结束。
func New(client redis.UniversalClient, opts ...Option) (Buffer, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	if options.MaxEntries <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxEntries, options.MaxEntries)
	}
	if options.TTL <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTTL, options.TTL)
	}

	return &redisBuffer{
		client:  client,
		options: options,
	}, nil
}

// =============================================================================
// Redis 实现
// =============================================================================

// redisBuffer 基于 Redis List 的 Buffer 实现。
type redisBuffer struct {
	client  redis.UniversalClient
	options *Options
	closed  atomic.Bool
}

// key 拼接来源标签对应的 Redis key。
func (b *redisBuffer) key(source string) string {
	return b.options.KeyPrefix + source
}

func (b *redisBuffer) Append(ctx context.Context, source, message string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if source == "" {
		return ErrEmptySource
	}

	ttlSeconds := int64(b.options.TTL / time.Second)
	err := appendScript.Run(ctx, b.client,
		[]string{b.key(source)},
		message, b.options.MaxEntries, ttlSeconds,
	).Err()
	if err != nil {
		return fmt.Errorf("logbuf: append to %q: %w", source, err)
	}
	return nil
}

func (b *redisBuffer) Read(ctx context.Context, source string) ([]string, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if source == "" {
		return nil, ErrEmptySource
	}

	raw, err := b.client.LRange(ctx, b.key(source), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("logbuf: read %q: %w", source, err)
	}

	// 完全相同的消息折叠到首次出现的位置，保持插入序
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, msg := range raw {
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	return out, nil
}

func (b *redisBuffer) Clear(ctx context.Context, source string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if source == "" {
		return ErrEmptySource
	}

	if err := b.client.Del(ctx, b.key(source)).Err(); err != nil {
		return fmt.Errorf("logbuf: clear %q: %w", source, err)
	}
	return nil
}

func (b *redisBuffer) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return b.client.Close()
}
