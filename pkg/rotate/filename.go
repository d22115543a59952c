package rotate

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// dateLayout 文件名中嵌入的日历日期格式。
const dateLayout = "2006-01-02"

// FileName 日志文件名的结构化表示。
//
// 取代对路径字符串的切割拼接：备份编号上移、日期切换等操作都在
// 结构体字段上完成，再由 String 生成确定性的路径。
type FileName struct {
	// Dir 所在目录（可为空，表示当前目录）
	Dir string

	// Prefix 文件名前缀（不含日期、编号与扩展名），允许包含下划线
	Prefix string

	// Date 日历日期，YYYY-MM-DD
	Date string

	// Backup 备份编号，0 表示活动文件，1 为最近一次轮转的备份
	Backup int

	// Ext 扩展名（含点，如 ".txt"），可为空
	Ext string
}

// String 生成完整路径。
//
// 活动文件: <dir>/<prefix>_<date><ext>
// 编号备份: <dir>/<prefix>_<N>_<date><ext>
func (f FileName) String() string {
	var b strings.Builder
	b.WriteString(f.Prefix)
	if f.Backup > 0 {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(f.Backup))
	}
	b.WriteByte('_')
	b.WriteString(f.Date)
	b.WriteString(f.Ext)
	return filepath.Join(f.Dir, b.String())
}

// WithBackup 返回指定备份编号的副本，0 还原为活动文件名。
func (f FileName) WithBackup(n int) FileName {
	f.Backup = n
	return f
}

// ParseFileName 解析 String 生成的路径。
//
// 与 String 构成一对确定性的格式化/解析函数。不符合
// <prefix>[_<N>]_<YYYY-MM-DD><ext> 格式时返回 [ErrBadFileName]。
func ParseFileName(path string) (FileName, error) {
	dir := filepath.Dir(path)
	if dir == "." && !strings.HasPrefix(path, "."+string(filepath.Separator)) {
		dir = ""
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	// 日期固定在最后一段
	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return FileName{}, fmt.Errorf("%w: %q", ErrBadFileName, path)
	}
	date := stem[i+1:]
	if _, err := time.Parse(dateLayout, date); err != nil {
		return FileName{}, fmt.Errorf("%w: %q: bad date %q", ErrBadFileName, path, date)
	}
	rest := stem[:i]

	// 倒数第二段若为正整数则是备份编号，其余部分为前缀
	backup := 0
	if j := strings.LastIndexByte(rest, '_'); j >= 0 {
		if n, err := strconv.Atoi(rest[j+1:]); err == nil && n > 0 {
			backup = n
			rest = rest[:j]
		}
	}
	if rest == "" {
		return FileName{}, fmt.Errorf("%w: %q: empty prefix", ErrBadFileName, path)
	}

	return FileName{
		Dir:    dir,
		Prefix: rest,
		Date:   date,
		Backup: backup,
		Ext:    ext,
	}, nil
}

// sanitizeFilename 对构造参数中的文件路径做格式净化。
//
// 拒绝空路径、空字节、显式目录路径（尾随分隔符）与 ".." 路径段。
// 仅做格式校验，不做目录隔离。
func sanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrEmptyFilename
	}
	if strings.ContainsRune(filename, 0) {
		return "", fmt.Errorf("%w: contains null byte", ErrInvalidFilename)
	}
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, "\\") {
		return "", fmt.Errorf("%w: path is a directory", ErrInvalidFilename)
	}

	cleaned := filepath.Clean(filename)

	// 按路径段精确判断 ".."，避免误伤 "app..2024.log" 这类合法文件名
	for _, seg := range strings.Split(cleaned, string(filepath.Separator)) {
		if seg == ".." {
			return "", fmt.Errorf("%w: path traversal", ErrInvalidFilename)
		}
	}

	base := filepath.Base(cleaned)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: no file name specified", ErrInvalidFilename)
	}

	return cleaned, nil
}

// splitBase 将配置的基准文件名拆分为目录、前缀与扩展名。
// 例如 "/var/log/system_logs.txt" → ("/var/log", "system_logs", ".txt")。
func splitBase(path string) (dir, prefix, ext string, err error) {
	dir = filepath.Dir(path)
	if dir == "." && !strings.HasPrefix(path, "."+string(filepath.Separator)) {
		dir = ""
	}
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	prefix = strings.TrimSuffix(base, ext)
	if prefix == "" {
		return "", "", "", fmt.Errorf("%w: empty prefix in %q", ErrInvalidFilename, path)
	}
	return dir, prefix, ext, nil
}
