// Package client pointlist HTTP API 客户端（命令行工具远程模式使用）
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	httpapi "pointlist/internal/http"
	"pointlist/internal/normalize"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// APIError 服务端返回的业务错误（code != 2000）
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pointlist API error: %s (code: %d)", e.Message, e.Code)
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client pointlist API 客户端；上传后自动携带会话 ID
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
	sessionID  string
}

// New 创建客户端
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(2 * time.Minute). // 大表转换 / 导出
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{httpClient: c, logger: logger}
}

// SessionID 当前会话 ID
func (c *Client) SessionID() string { return c.sessionID }

// SetSessionID 复用已有会话
func (c *Client) SetSessionID(id string) { c.sessionID = id }

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.httpClient.R().SetContext(ctx)
	if c.sessionID != "" {
		r.SetHeader(httpapi.SessionHeader, c.sessionID)
	}
	return r
}

// Upload 上传工作簿并返回工作表列表
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (*httpapi.UploadResponse, error) {
	req := c.request(ctx).SetFileReader("file", fileName, bytes.NewReader(data))
	if c.sessionID != "" {
		req.SetFormData(map[string]string{"session_id": c.sessionID})
	}
	resp, err := req.Post("/api/upload")
	if err != nil {
		return nil, fmt.Errorf("failed to call pointlist API: %w", err)
	}

	var out httpapi.UploadResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	c.sessionID = out.SessionID
	c.logger.Debug("workbook uploaded", zap.String("session_id", out.SessionID), zap.Strings("sheets", out.Sheets))
	return &out, nil
}

// Preview 预览工作表前 maxRows 行
func (c *Client) Preview(ctx context.Context, sheet string, maxRows int) (*httpapi.PreviewResponse, error) {
	resp, err := c.request(ctx).
		SetBody(httpapi.PreviewRequest{SessionID: c.sessionID, SheetName: sheet, MaxRows: maxRows}).
		Post("/api/preview_sheet")
	if err != nil {
		return nil, fmt.Errorf("failed to call pointlist API: %w", err)
	}
	var out httpapi.PreviewResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transform 按映射转换工作表
func (c *Client) Transform(ctx context.Context, req httpapi.TransformRequest) (*normalize.Result, error) {
	if req.SessionID == "" {
		req.SessionID = c.sessionID
	}
	resp, err := c.request(ctx).SetBody(req).Post("/api/transform")
	if err != nil {
		return nil, fmt.Errorf("failed to call pointlist API: %w", err)
	}
	var out normalize.Result
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export 导出工作簿，返回 xlsx 字节
func (c *Client) Export(ctx context.Context, req httpapi.ExportRequest) ([]byte, error) {
	if req.SessionID == "" {
		req.SessionID = c.sessionID
	}
	resp, err := c.request(ctx).SetBody(req).Post("/api/export")
	if err != nil {
		return nil, fmt.Errorf("failed to call pointlist API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pointlist API returned HTTP %d", resp.StatusCode())
	}
	// 失败时服务端返回 JSON 信封
	if strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json") {
		return nil, decode(resp, nil)
	}
	return resp.Body(), nil
}

// Discard 删除服务端暂存的当前会话
func (c *Client) Discard(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	resp, err := c.request(ctx).Delete("/api/session")
	if err != nil {
		return fmt.Errorf("failed to call pointlist API: %w", err)
	}
	var out map[string]any
	if err := decode(resp, &out); err != nil {
		return err
	}
	c.logger.Debug("session discarded", zap.String("session_id", c.sessionID))
	c.sessionID = ""
	return nil
}

func decode(resp *resty.Response, out any) error {
	if resp.IsError() {
		return fmt.Errorf("pointlist API returned HTTP %d", resp.StatusCode())
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if env.Code != httpapi.ResultSuccess {
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return errors.New("unexpected success envelope")
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
