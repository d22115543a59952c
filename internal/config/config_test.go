package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile 写临时配置文件并返回路径
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPath_ReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "logkitd.yaml", `
listen: ":9090"
redis:
  addr: "redis.internal:6379"
  db: 2
logging:
  file: "/var/log/app/system_logs.txt"
  max_size_mb: 5
  backup_count: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "/var/log/app/system_logs.txt", cfg.Logging.File)
	assert.Equal(t, int64(5), cfg.Logging.MaxSizeMB)
	assert.Equal(t, 20, cfg.Logging.BackupCount)
	// 未覆盖的字段保持默认值
	assert.Equal(t, "system_logs_", cfg.Logging.KeyPrefix)
	assert.Equal(t, 7*24*time.Hour, cfg.Logging.TTL)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "logkitd.json", `{"listen": ":7070", "logging": {"backup_count": 3}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, 3, cfg.Logging.BackupCount)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "logkitd.toml", `listen = ":8080"`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "listen: [unclosed")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrParseFailed)
}

// =============================================================================
// 监视测试
// =============================================================================

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := writeFile(t, "logkitd.yaml", `listen: ":8080"`)

	var (
		mu   sync.Mutex
		got  Config
		gerr error
		seen = make(chan struct{}, 1)
	)
	w, err := Watch(path, func(cfg Config, err error) {
		mu.Lock()
		got, gerr = cfg, err
		mu.Unlock()
		select {
		case seen <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	w.Start()

	require.NoError(t, os.WriteFile(path, []byte(`listen: ":9999"`), 0o600))

	select {
	case <-seen:
	case <-time.After(3 * time.Second):
		t.Fatal("回调未在预期时间内触发")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, gerr)
	assert.Equal(t, ":9999", got.Listen)
}

func TestWatch_EmptyPath(t *testing.T) {
	_, err := Watch("", nil)
	assert.Error(t, err)
}

func TestWatch_StopIsIdempotent(t *testing.T) {
	path := writeFile(t, "logkitd.yaml", `listen: ":8080"`)

	w, err := Watch(path, nil)
	require.NoError(t, err)

	w.Start()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
