package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/internal/observability/metrics"
	"RICA-Assistant/internal/resolver"
	"RICA-Assistant/pkg/logger"
)

// Version 是对外暴露的 API 版本号。
const Version = "0.1.0"

// InquiryResolver 定义 API 层所需的问询解析能力。
type InquiryResolver interface {
	Resolve(ctx context.Context, inquirer, inquiry string) (*resolver.Resolution, error)
}

// UpdateDispatcher 定义 webhook 更新的异步派发能力。
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, raw json.RawMessage) error
}

// Server 负责暴露 REST 接口，供外部驱动问询解析。
type Server struct {
	addr       string
	resolver   InquiryResolver
	dispatcher UpdateDispatcher
}

// AskRequest 是问询接口的请求体。
type AskRequest struct {
	QueryText string `json:"query_text"`
}

// NewServer 构造 API 服务实例。dispatcher 为 nil 时不注册 webhook 路由。
func NewServer(addr string, res InquiryResolver, dispatcher UpdateDispatcher) *Server {
	return &Server{addr: addr, resolver: res, dispatcher: dispatcher}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Routes 注册全部路由并套上指标采集中间件。
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", instrument("root", s.handleRoot))
	mux.HandleFunc("/health", instrument("health", s.handleHealth))
	mux.HandleFunc("/api/v1/status", instrument("status", s.handleStatus))
	mux.HandleFunc("/manager/ask", instrument("ask", s.handleAsk))
	if s.dispatcher != nil {
		mux.HandleFunc("/telegram/webhook", instrument("webhook", s.handleWebhook))
	}
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// handleAsk 处理问询请求。
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, xerrors.CodeInvalidInput, "仅支持 POST")
		return
	}
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "解析器未初始化")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, "请求体解析失败")
		return
	}

	// 空问询在这里拦截，解析器不会被调用。
	if strings.TrimSpace(req.QueryText) == "" {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, "query_text 不能为空")
		return
	}

	result, err := s.resolver.Resolve(r.Context(), "", req.QueryText)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeResolveError 将解析错误映射为 HTTP 状态码。
// 上游错误细节不回传给调用方，只保留通用描述。
func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidInput:
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, "query_text 不能为空")
	case xerrors.CodeTimeout, xerrors.CodeUpstreamUnavailable:
		logger.L().Error("问询解析失败", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, xerrors.CodeUpstreamUnavailable, "助手暂时不可用，请稍后再试")
	default:
		logger.L().Error("问询解析失败", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, xerrors.CodeUnknown, "内部错误")
	}
}

// handleWebhook 处理消息机器人推送的更新。
// 只要请求体是合法 JSON 就立即确认，处理在队列里异步进行。
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, xerrors.CodeInvalidInput, "仅支持 POST")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, "请求体不是合法 JSON")
		return
	}

	// 入队失败只记录日志，不改变应答。向提供方返回错误会触发重复投递。
	if err := s.dispatcher.Dispatch(r.Context(), json.RawMessage(body)); err != nil {
		logger.L().Error("更新派发失败", slog.Any("error", err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleHealth 报告进程存活状态。
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, xerrors.CodeInvalidInput, "仅支持 GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "RICA API is running successfully",
	})
}

// handleRoot 返回欢迎信息，未匹配的路径统一返回 404。
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, xerrors.CodeInvalidInput, "Endpoint not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, xerrors.CodeInvalidInput, "仅支持 GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to RICA API",
		"version": Version,
	})
}

// handleStatus 返回静态的能力清单。
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, xerrors.CodeInvalidInput, "仅支持 GET")
		return
	}
	endpoints := []string{"/", "/health", "/manager/ask", "/api/v1/status", "/metrics"}
	if s.dispatcher != nil {
		endpoints = append(endpoints, "/telegram/webhook")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"api_version": "v1",
		"status":      "operational",
		"endpoints":   endpoints,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code xerrors.Code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    string(code),
		"message": message,
	})
}

// instrument 包装处理函数并记录请求指标。
func instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
