// Package logbuf 提供按来源分流的有界远端日志缓冲。
//
// 每个来源（source tag）对应 Redis 中的一个追加列表：
//   - Append 追加消息并截断到最近 MaxEntries 条（默认 1000）
//   - 列表首次写入时设置一次 TTL（默认 7 天），存续期间不刷新
//   - Read 返回插入序，完全相同的消息折叠到首次出现的位置
//   - Clear 删除整个列表，之后的 Append 以全新 TTL 重建
//
// 追加/截断/过期在服务端以单个 Lua 脚本执行，同一来源的两次
// Append 不会交错截断步骤。
//
// 读取与清除的存储层失败包装后返回调用方；Append 失败作为尽力
// 而为的降级写入结果向上传播，不会使进程崩溃。
package logbuf
