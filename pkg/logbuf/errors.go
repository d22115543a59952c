package logbuf

import "errors"

var (
	// ErrNilClient 表示传入的 Redis 客户端为 nil。
	ErrNilClient = errors.New("logbuf: nil client")

	// ErrEmptySource 表示来源标签为空字符串。
	// 空标签会命中裸前缀 key，几乎总是使用错误，应在入口处 fail-fast。
	ErrEmptySource = errors.New("logbuf: empty source tag")

	// ErrInvalidMaxEntries 表示条数上限无效（必须 > 0）。
	ErrInvalidMaxEntries = errors.New("logbuf: MaxEntries must be positive")

	// ErrInvalidTTL 表示过期时间无效（必须 > 0）。
	ErrInvalidTTL = errors.New("logbuf: TTL must be positive")

	// ErrClosed 表示缓冲已关闭。
	ErrClosed = errors.New("logbuf: buffer is closed")
)
