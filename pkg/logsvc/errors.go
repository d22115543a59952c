package logsvc

import "errors"

var (
	// ErrNilBuffer 表示传入的远端缓冲为 nil。
	ErrNilBuffer = errors.New("logsvc: nil buffer")

	// ErrInvalidConfig 表示轮转配置无效（阈值必须为正数）。
	// 校验失败不会改动已生效的配置与写入器状态。
	ErrInvalidConfig = errors.New("logsvc: invalid logging configuration")

	// ErrClosed 表示服务已关闭。
	ErrClosed = errors.New("logsvc: service is closed")
)
