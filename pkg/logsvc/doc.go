// Package logsvc 组装日志采集的两条落地路径。
//
// Service 持有一个活动的 [rotate.Writer] 与当前的轮转配置
// {MaxBytes, BackupCount}，并引用一个 [logbuf.Buffer]。一条带来源
// 标签的日志记录经 Log 进入后：
//   - 格式化为 "时间 - 级别 - [来源] 消息" 追加到轮转文件
//   - 原始消息推入以来源为 key 的有界远端缓冲
//
// 两条路径相互独立：文件写入失败只降级记录，不阻断远端缓冲；
// 缓冲写入失败作为尽力而为的结果返回调用方。
//
// Configure 原子替换活动写入器：校验失败不改动任何状态，校验通过
// 时以新阈值构造全新写入器（当天日期的新文件）并换下旧实例，换下
// 前已开始的写入在旧实例上完整结束。
//
// Service 在进程启动时构造一次，按引用传给所有调用方，不提供任何
// 隐式全局查找。
package logsvc
