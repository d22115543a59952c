// Package config 加载日志采集守护进程的配置文件。
//
// 支持 YAML 与 JSON，按文件扩展名自动检测格式。
// 所有字段都有可用的默认值，缺省时可以零配置启动。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// 配置加载错误。
var (
	// ErrUnsupportedFormat 表示配置文件扩展名不受支持。
	ErrUnsupportedFormat = errors.New("config: unsupported config format")

	// ErrLoadFailed 表示配置文件读取失败。
	ErrLoadFailed = errors.New("config: failed to load config file")

	// ErrParseFailed 表示配置内容解析失败。
	ErrParseFailed = errors.New("config: failed to parse config data")
)

// Config 守护进程的完整配置。
type Config struct {
	// Listen HTTP 监听地址
	Listen string `koanf:"listen"`

	// Redis 远端缓冲的连接配置
	Redis RedisConfig `koanf:"redis"`

	// Logging 文件轮转与远端缓冲的日志配置
	Logging LoggingConfig `koanf:"logging"`

	// OpsLog 守护进程自身运维日志的输出配置
	OpsLog OpsLogConfig `koanf:"ops_log"`
}

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LoggingConfig 业务日志配置。
type LoggingConfig struct {
	// File 轮转文件的基准文件名
	File string `koanf:"file"`

	// MaxSizeMB 单文件大小阈值（MiB）
	MaxSizeMB int64 `koanf:"max_size_mb"`

	// BackupCount 每个日历日保留的备份数量
	BackupCount int `koanf:"backup_count"`

	// KeyPrefix 远端缓冲的 Redis key 前缀
	KeyPrefix string `koanf:"key_prefix"`

	// TTL 远端缓冲的首次过期时间
	TTL time.Duration `koanf:"ttl"`
}

// OpsLogConfig 运维日志输出配置（守护进程自身的 slog 输出）。
type OpsLogConfig struct {
	// File 运维日志文件，为空时输出到标准错误
	File string `koanf:"file"`

	// MaxSizeMB 运维日志单文件大小阈值（MiB）
	MaxSizeMB int `koanf:"max_size_mb"`

	// MaxBackups 运维日志保留的旧文件数量
	MaxBackups int `koanf:"max_backups"`
}

// Default 返回内置默认配置。
func Default() Config {
	return Config{
		Listen: ":8080",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			File:        "logs/system_logs.txt",
			MaxSizeMB:   1,
			BackupCount: 10,
			KeyPrefix:   "system_logs_",
			TTL:         7 * 24 * time.Hour,
		},
		OpsLog: OpsLogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load 从文件加载配置，覆盖在默认值之上。
// path 为空时直接返回默认配置。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	parser, err := detectParser(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return cfg, nil
}

// detectParser 根据扩展名选择解析器。
func detectParser(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
