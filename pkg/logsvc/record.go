package logsvc

import (
	"fmt"
	"strings"
	"time"
)

// Level 日志级别。
type Level string

// 支持的日志级别。
const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// timeLayout 文件行中的时间戳格式。
const timeLayout = "2006-01-02 15:04:05"

// Record 一条日志记录。创建后不再修改，文件写入器与远端缓冲
// 各自消费同一条记录。
type Record struct {
	// Time 记录产生时间
	Time time.Time

	// Level 日志级别
	Level Level

	// Source 来源标签，标识逻辑生产者（如 "listener"、"processor"）
	Source string

	// Message 原始消息内容
	Message string
}

// Format 生成落盘的单行文本：时间 - 级别 - [来源大写] 消息。
func (r Record) Format() string {
	return fmt.Sprintf("%s - %s - [%s] %s\n",
		r.Time.Format(timeLayout), r.Level, strings.ToUpper(r.Source), r.Message)
}
