// Package rotate 提供按日期与大小双重策略的日志文件轮转写入器。
//
// Writer 实现 Write/Close/Rotate 契约，所有方法并发安全。
//
// # 轮转策略
//
// 满足以下任一条件时在下次写入前触发轮转：
//   - 当前活动文件大小 ≥ MaxBytes
//   - 日历日期相对上次轮转（或构造时）发生变化
//
// 同一次判定中日期变化与大小超限只触发一次轮转。
//
// # 文件命名
//
// 活动文件为 <prefix>_<YYYY-MM-DD><ext>，编号备份为
// <prefix>_<N>_<YYYY-MM-DD><ext>，N 从 1（最新）到 BackupCount（最旧）。
// 轮转时已有备份整体上移一位，超出 BackupCount 的最旧备份被覆盖。
//
// # 降级策略
//
// 轮转过程中的重命名/重开失败不会使写入失败：错误通过 WithOnError
// 回调上报，写入继续落在当前已知的活动文件路径上。宁可损失轮转
// 精度，也不丢失调用方的日志记录。
package rotate
