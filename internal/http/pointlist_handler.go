package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pointlist/internal/domain"
	"pointlist/internal/export"
	"pointlist/internal/mapping"
	"pointlist/internal/normalize"
	"pointlist/internal/notify"
	"pointlist/internal/store"
	"pointlist/internal/workbook"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHeader 会话 ID 请求头
const SessionHeader = "X-Session-ID"

const (
	defaultMaxUploadBytes = 32 << 20
	maxJSONBodyBytes      = 64 << 20
	maxSessionIDLen       = 128
	notifyTimeout         = 5 * time.Second
)

// UploadResponse 上传结果
type UploadResponse struct {
	SessionID string   `json:"session_id"`
	Sheets    []string `json:"sheets"`
}

// PreviewRequest 预览请求
type PreviewRequest struct {
	SessionID string `json:"session_id"`
	SheetName string `json:"sheet_name"`
	MaxRows   int    `json:"max_rows"`
}

// PreviewResponse 预览结果；缺失单元格为 ""
type PreviewResponse struct {
	SheetName string     `json:"sheet_name"`
	Rows      [][]string `json:"rows"`
	ColCount  int        `json:"col_count"`
}

// TransformRequest 转换请求；Strict 为空时使用服务默认值
type TransformRequest struct {
	SessionID      string         `json:"session_id"`
	SheetName      string         `json:"sheet_name"`
	HeaderRowIndex any            `json:"header_row_index"` // 整数或十进制字符串；缺省为 0
	Mapping        map[string]any `json:"mapping"`
	Strict         *bool          `json:"strict,omitempty"`
}

// ExportRequest 导出请求
type ExportRequest struct {
	SessionID string                    `json:"session_id,omitempty"`
	Rows      []domain.NormalizedRecord `json:"rows"`
	ShipInfo  map[string]any            `json:"ship_info"`
}

// HandlerOptions 处理器参数
type HandlerOptions struct {
	MaxUploadBytes int64
	PreviewMaxRows int
	MappingStrict  bool
}

// PointListHandler 点表上传 / 预览 / 转换 / 导出
type PointListHandler struct {
	store    store.WorkbookStore
	writer   *export.Writer
	notifier notify.Publisher
	opts     HandlerOptions
	logger   *zap.Logger
	newID    func() string
}

func NewPointListHandler(s store.WorkbookStore, n notify.Publisher, opts HandlerOptions, logger *zap.Logger) *PointListHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notify.Nop{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.PreviewMaxRows <= 0 {
		opts.PreviewMaxRows = workbook.DefaultPreviewRows
	}
	return &PointListHandler{
		store:    s,
		writer:   export.NewWriter(logger),
		notifier: n,
		opts:     opts,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// Upload POST /api/upload (multipart, 字段 file)
func (h *PointListHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeJSON(w, http.StatusOK, Fail(domain.ErrNoFileProvided.Error()))
			return
		}
		writeJSON(w, http.StatusOK, Fail("failed to parse form: "+err.Error()))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(domain.ErrNoFileProvided.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file: "+err.Error()))
		return
	}

	sheets, err := workbook.ListSheets(data)
	if err != nil {
		h.logger.Warn("rejected upload", zap.Error(err), zap.Int("bytes", len(data)))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	sessionID := sessionFromRequest(r, r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = h.newID()
	} else if len(sessionID) > maxSessionIDLen {
		writeJSON(w, http.StatusOK, Fail("session_id too long"))
		return
	}
	if err := h.store.Put(r.Context(), sessionID, data); err != nil {
		h.logger.Error("failed to stage workbook", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to stage workbook"))
		return
	}

	h.logger.Info("workbook staged",
		zap.String("session_id", sessionID),
		zap.Int("bytes", len(data)),
		zap.Int("sheets", len(sheets)),
	)
	writeJSON(w, http.StatusOK, Ok(UploadResponse{SessionID: sessionID, Sheets: sheets}))
}

// PreviewSheet POST /api/preview_sheet
func (h *PointListHandler) PreviewSheet(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := readBodyJSON(r, maxJSONBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	data, ok := h.loadStaged(w, r, req.SessionID)
	if !ok {
		return
	}

	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = h.opts.PreviewMaxRows
	}
	g, err := workbook.PreviewGrid(data, req.SheetName, maxRows)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(PreviewResponse{
		SheetName: req.SheetName,
		Rows:      g.StringRows(),
		ColCount:  g.Cols(),
	}))
}

// Transform POST /api/transform
func (h *PointListHandler) Transform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if err := readBodyJSON(r, maxJSONBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	data, ok := h.loadStaged(w, r, req.SessionID)
	if !ok {
		return
	}

	strict := h.opts.MappingStrict
	if req.Strict != nil {
		strict = *req.Strict
	}
	headerRow, _, err := mapping.ParseIndex("header_row_index", req.HeaderRowIndex)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	m, err := mapping.New(req.Mapping, mapping.Options{Strict: strict})
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	g, err := workbook.LoadGrid(data, req.SheetName, 0)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	res, err := normalize.Normalize(g, headerRow, m)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	h.logger.Info("sheet transformed",
		zap.String("sheet", req.SheetName),
		zap.Int("header_row", headerRow),
		zap.Int("rows", g.Rows()),
		zap.Int("records", len(res.Records)),
	)
	writeJSON(w, http.StatusOK, Ok(res))
}

// Export POST /api/export，成功时直接返回 xlsx 附件
func (h *PointListHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := readBodyJSON(r, maxJSONBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, plan, err := h.writer.Export(req.Rows, domain.ShipMetadataFromMap(req.ShipInfo))
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyExport) {
			h.logger.Error("failed to export workbook", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	sessionID := sessionFromRequest(r, req.SessionID)
	h.publishExport(r.Context(), notify.ExportEvent{
		SessionID: sessionID,
		FileName:  export.DefaultFileName,
		Sheets:    sheetNames(plan),
		Records:   len(req.Rows),
		Groups:    len(plan.Groups),
		Devices:   len(plan.Devices),
		Bytes:     len(data),
		At:        time.Now().UTC(),
	})

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.DefaultFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DiscardSession DELETE /api/session，删除会话暂存的工作簿
func (h *PointListHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusOK, Fail("session_id is required"))
		return
	}
	if err := h.store.Delete(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to discard staged workbook", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to discard staged workbook"))
		return
	}
	h.logger.Info("staged workbook discarded", zap.String("session_id", sessionID))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"session_id": sessionID}))
}

func (h *PointListHandler) publishExport(ctx context.Context, ev notify.ExportEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := h.notifier.PublishExport(ctx, ev); err != nil {
		h.logger.Warn("failed to publish export event", zap.String("session_id", ev.SessionID), zap.Error(err))
	}
}

// loadStaged 读取会话暂存的工作簿；失败时已写出错误响应
func (h *PointListHandler) loadStaged(w http.ResponseWriter, r *http.Request, bodySession string) ([]byte, bool) {
	sessionID := sessionFromRequest(r, bodySession)
	if sessionID == "" {
		writeJSON(w, http.StatusOK, Fail("session_id is required: upload a workbook first"))
		return nil, false
	}
	data, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			writeJSON(w, http.StatusOK, Fail(domain.ErrSessionNotFound.Error()+": upload a workbook first"))
			return nil, false
		}
		h.logger.Error("failed to load staged workbook", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to load staged workbook"))
		return nil, false
	}
	return data, true
}

// sessionFromRequest 请求体 / 表单中的 session_id 优先，其次为请求头
func sessionFromRequest(r *http.Request, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func sheetNames(plan *export.ExportPlan) []string {
	out := make([]string, 0, len(plan.Sheets))
	for _, s := range plan.Sheets {
		out = append(out, s.Name)
	}
	return out
}
