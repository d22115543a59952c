// Package web 提供日志采集服务的 HTTP 外观层。
//
// 端点与响应体沿用既有前端约定：
//
//	GET  /get_logs?type=<source>     读取来源的远端日志
//	POST /clear_logs                 清除来源的远端日志（表单字段 type）
//	GET  /get_logging_config         读取当前轮转配置
//	POST /update_logging_config      更新轮转配置（表单 maxBytes 单位 MiB、backupCount）
//
// type 缺省时默认为 "listener"。校验失败返回 200 且 success=false，
// 存储层失败返回 500，两者都携带人类可读的 message。
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/omeyang/logkit/pkg/logbuf"
	"github.com/omeyang/logkit/pkg/logsvc"
)

// defaultSource 请求未携带 type 参数时使用的来源标签。
const defaultSource = "listener"

// bytesPerMiB update_logging_config 的 maxBytes 参数以 MiB 为单位。
const bytesPerMiB = 1024 * 1024

// Handler 日志采集服务的 HTTP 处理器。
type Handler struct {
	svc *logsvc.Service
	buf logbuf.Buffer
	log *slog.Logger
}

// NewHandler 创建 HTTP 处理器。
func NewHandler(svc *logsvc.Service, buf logbuf.Buffer, log *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("web: nil service")
	}
	if buf == nil {
		return nil, errors.New("web: nil buffer")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, buf: buf, log: log}, nil
}

// Register 把全部端点挂载到 mux 上。
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /get_logs", h.getLogs)
	mux.HandleFunc("POST /clear_logs", h.clearLogs)
	mux.HandleFunc("GET /get_logging_config", h.getLoggingConfig)
	mux.HandleFunc("POST /update_logging_config", h.updateLoggingConfig)
}

// =============================================================================
// 响应体
// =============================================================================

// logsResponse get_logs 的响应体。logs 始终出现（可能为空数组）。
type logsResponse struct {
	Success bool     `json:"success"`
	Logs    []string `json:"logs"`
}

// statusResponse 通用的成功/失败响应体。
type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// configResponse get_logging_config 的响应体，maxBytes 单位为字节。
type configResponse struct {
	Success     bool  `json:"success"`
	MaxBytes    int64 `json:"maxBytes"`
	BackupCount int   `json:"backupCount"`
}

// =============================================================================
// 端点实现
// =============================================================================

// getLogs 读取指定来源保留的远端日志。
func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("type")
	if source == "" {
		source = defaultSource
	}

	logs, err := h.buf.Read(r.Context(), source)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{
			Success: false,
			Message: fmt.Sprintf("Error fetching logs: %v", err),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, logsResponse{Success: true, Logs: logs})
}

// clearLogs 删除指定来源的整个远端日志流。
func (h *Handler) clearLogs(w http.ResponseWriter, r *http.Request) {
	source := r.FormValue("type")
	if source == "" {
		source = defaultSource
	}

	if err := h.buf.Clear(r.Context(), source); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{
			Success: false,
			Message: fmt.Sprintf("Error clearing logs: %v", err),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, statusResponse{
		Success: true,
		Message: fmt.Sprintf("%s logs cleared successfully", capitalize(source)),
	})
}

// getLoggingConfig 返回当前生效的轮转配置。
func (h *Handler) getLoggingConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.svc.Current()
	h.writeJSON(w, http.StatusOK, configResponse{
		Success:     true,
		MaxBytes:    cfg.MaxBytes,
		BackupCount: cfg.BackupCount,
	})
}

// updateLoggingConfig 热更新轮转配置。
// maxBytes 表单值以 MiB 为单位，内部换算为字节后整体替换配置。
func (h *Handler) updateLoggingConfig(w http.ResponseWriter, r *http.Request) {
	maxMiB, errSize := strconv.ParseInt(r.FormValue("maxBytes"), 10, 64)
	backupCount, errCount := strconv.Atoi(r.FormValue("backupCount"))
	if errSize != nil || errCount != nil {
		h.writeJSON(w, http.StatusOK, statusResponse{
			Success: false,
			Message: "Invalid input. Please enter valid numbers!",
		})
		return
	}

	err := h.svc.Configure(maxMiB*bytesPerMiB, backupCount)
	switch {
	case errors.Is(err, logsvc.ErrInvalidConfig):
		h.writeJSON(w, http.StatusOK, statusResponse{
			Success: false,
			Message: "Values must be greater than 0!",
		})
	case err != nil:
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{
			Success: false,
			Message: fmt.Sprintf("Error updating config: %v", err),
		})
	default:
		h.writeJSON(w, http.StatusOK, statusResponse{
			Success: true,
			Message: "Logging configuration updated successfully!",
		})
	}
}

// =============================================================================
// 辅助函数
// =============================================================================

// writeJSON 编码 JSON 响应体。编码失败只能记录，此时响应头已发出。
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("encode response", slog.Any("error", err))
	}
}

// capitalize 首字母大写，用于拼接面向用户的提示消息。
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
