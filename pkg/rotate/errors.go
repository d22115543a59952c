package rotate

import "errors"

// 配置校验错误
var (
	// ErrEmptyFilename 文件名为空
	ErrEmptyFilename = errors.New("rotate: filename is required")

	// ErrInvalidFilename 文件名格式无效（空字节、目录路径或路径穿越）
	ErrInvalidFilename = errors.New("rotate: invalid filename")

	// ErrInvalidMaxBytes MaxBytes 值无效（必须在 1~10GiB 范围内）
	ErrInvalidMaxBytes = errors.New("rotate: invalid MaxBytes")

	// ErrInvalidBackupCount BackupCount 值无效（必须在 1~1024 范围内）
	ErrInvalidBackupCount = errors.New("rotate: invalid BackupCount")

	// ErrInvalidFileMode FileMode 包含非权限位（仅允许低 9 位 0000~0777）
	ErrInvalidFileMode = errors.New("rotate: invalid FileMode")

	// ErrClosed 写入器已关闭
	ErrClosed = errors.New("rotate: writer is closed")
)

// 文件名解析错误
var (
	// ErrBadFileName 路径不符合 <prefix>[_<N>]_<YYYY-MM-DD><ext> 格式
	ErrBadFileName = errors.New("rotate: malformed log file name")
)
