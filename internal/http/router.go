package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	r.mux.ServeHTTP(w, req)
	r.logger.Debug("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterPointListRoutes 注册点表上传 / 预览 / 转换 / 导出 / 会话清理路由
func (r *Router) RegisterPointListRoutes(h *PointListHandler) {
	r.Handle("/api/upload", method(http.MethodPost, h.Upload))
	r.Handle("/api/preview_sheet", method(http.MethodPost, h.PreviewSheet))
	r.Handle("/api/transform", method(http.MethodPost, h.Transform))
	r.Handle("/api/export", method(http.MethodPost, h.Export))
	r.Handle("/api/session", method(http.MethodDelete, h.DiscardSession))
	r.Handle("/healthz", method(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	}))
}
